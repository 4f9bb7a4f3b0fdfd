package dem

import (
	"errors"
	"math"
	"reflect"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

var ErrCreateDEMSchema = errors.New("error creating dem tiledb schema")
var ErrWriteDEMStore = errors.New("error writing dem tiledb array")
var ErrReadDEMStore = errors.New("error reading dem tiledb array")

// demRowDim and demColDim are the DEM store's two dense dimension
// names, row (latitude index) and column (longitude index).
const demRowDim = "row"
const demColDim = "col"

// demCell is the single-attribute struct the DEM store's schema is
// derived from via stagparser struct tags.
type demCell struct {
	Height []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
}

// Store is a TileDB dense array backing for DEMs too large to keep
// entirely within the in-memory AOI ceiling: the full DEM is written
// once to the array, and later AOI crops are read back with a
// Subarray query instead of a full BIL re-read.
type Store struct {
	ctx        *tiledb.Context
	uri        string
	rows, cols int
}

func createAttr(name string, filterDefs []stgpsr.Definition, tdbDefs map[string]stgpsr.Definition, schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	def, ok := tdbDefs["dtype"]
	if !ok {
		return errors.New("dtype tag not found")
	}
	dtype, _ := def.Attribute("dtype")

	var tdbDtype tiledb.Datatype
	switch dtype {
	case "float32":
		tdbDtype = tiledb.TILEDB_FLOAT32
	case "float64":
		tdbDtype = tiledb.TILEDB_FLOAT64
	default:
		return errors.New("unsupported dem store dtype: " + dtype)
	}

	filterList, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return err
	}
	defer filterList.Free()

	for _, filt := range filterDefs {
		if filt.Name() != "zstd" {
			continue
		}
		levelStr, _ := filt.Attribute("level")
		level := int32(16)
		if levelStr != "" {
			if n, perr := parseFloat(levelStr); perr == nil {
				level = int32(n)
			}
		}
		f, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
		if err != nil {
			return err
		}
		if err := f.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
			f.Free()
			return err
		}
		if err := filterList.AddFilter(f); err != nil {
			f.Free()
			return err
		}
		f.Free()
	}

	attr, err := tiledb.NewAttribute(ctx, name, tdbDtype)
	if err != nil {
		return err
	}
	defer attr.Free()
	if err := attr.SetFilterList(filterList); err != nil {
		return err
	}
	return schema.AddAttributes(attr)
}

func schemaAttrs(t any, schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	values := reflect.ValueOf(t).Elem()
	types := values.Type()
	filtDefs, _ := stgpsr.ParseStruct(t, "filters")
	tdbDefs, _ := stgpsr.ParseStruct(t, "tiledb")

	for i := 0; i < values.NumField(); i++ {
		name := types.Field(i).Name
		fieldTdbDefs := make(map[string]stgpsr.Definition)
		for _, v := range tdbDefs[name] {
			fieldTdbDefs[v.Name()] = v
		}
		if err := createAttr(name, filtDefs[name], fieldTdbDefs, schema, ctx); err != nil {
			return err
		}
	}
	return nil
}

// CreateStore creates the backing TileDB dense array for a rows x
// cols DEM grid at uri.
func CreateStore(ctx *tiledb.Context, uri string, rows, cols int) (*Store, error) {
	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}
	defer domain.Free()

	rowTile := uint64(math.Min(2048, float64(rows)))
	colTile := uint64(math.Min(2048, float64(cols)))

	rowDim, err := tiledb.NewDimension(ctx, demRowDim, tiledb.TILEDB_INT32, []int32{0, int32(rows) - 1}, rowTile)
	if err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}
	defer rowDim.Free()
	colDim, err := tiledb.NewDimension(ctx, demColDim, tiledb.TILEDB_INT32, []int32{0, int32(cols) - 1}, colTile)
	if err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}
	defer colDim.Free()

	if err := domain.AddDimensions(rowDim, colDim); err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}
	defer schema.Free()
	if err := schema.SetDomain(domain); err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}
	if err := schemaAttrs(&demCell{}, schema, ctx); err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}
	defer array.Free()
	if err := array.Create(schema); err != nil {
		return nil, errors.Join(ErrCreateDEMSchema, err)
	}

	return &Store{ctx: ctx, uri: uri, rows: rows, cols: cols}, nil
}

// OpenStore wraps an already-created backing array for a rows x cols
// DEM grid at uri.
func OpenStore(ctx *tiledb.Context, uri string, rows, cols int) *Store {
	return &Store{ctx: ctx, uri: uri, rows: rows, cols: cols}
}

// WriteFull writes the entire DEM grid (row-major, rows*cols values)
// to the store in one query.
func (s *Store) WriteFull(heights []float64) error {
	array, err := tiledb.NewArray(s.ctx, s.uri)
	if err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	defer array.Free()
	if err := array.Open(tiledb.TILEDB_WRITE); err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	defer array.Close()

	query, err := tiledb.NewQuery(s.ctx, array)
	if err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	defer query.Free()
	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	if _, err := query.SetDataBuffer("Height", heights); err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	defer subarr.Free()
	if err := subarr.AddRangeByName(demRowDim, tiledb.MakeRange(int32(0), int32(s.rows-1))); err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	if err := subarr.AddRangeByName(demColDim, tiledb.MakeRange(int32(0), int32(s.cols-1))); err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	if err := query.SetSubarray(subarr); err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	if err := query.Submit(); err != nil {
		return errors.Join(ErrWriteDEMStore, err)
	}
	return query.Finalize()
}

// ReadAOI reads back a [rowStart, rowEnd] x [colStart, colEnd]
// (inclusive) rectangle of the DEM, row-major, the same crop shape
// DEM.FillArray would otherwise read directly from the BIL file.
func (s *Store) ReadAOI(rowStart, rowEnd, colStart, colEnd int) ([]float64, error) {
	array, err := tiledb.NewArray(s.ctx, s.uri)
	if err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	defer array.Free()
	if err := array.Open(tiledb.TILEDB_READ); err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	defer array.Close()

	rows := rowEnd - rowStart + 1
	cols := colEnd - colStart + 1
	out := make([]float64, rows*cols)

	query, err := tiledb.NewQuery(s.ctx, array)
	if err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	defer query.Free()
	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	if _, err := query.SetDataBuffer("Height", out); err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	defer subarr.Free()
	if err := subarr.AddRangeByName(demRowDim, tiledb.MakeRange(int32(rowStart), int32(rowEnd))); err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	if err := subarr.AddRangeByName(demColDim, tiledb.MakeRange(int32(colStart), int32(colEnd))); err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	if err := query.SetSubarray(subarr); err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	if err := query.Submit(); err != nil {
		return nil, errors.Join(ErrReadDEMStore, err)
	}
	return out, nil
}
