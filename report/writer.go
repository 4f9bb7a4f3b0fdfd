package report

import (
	"errors"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

var ErrWriteSummary = errors.New("error writing run summary")

// WriteSummary writes the tally's rendered text to uri through TileDB's
// VFS abstraction so the summary lands uniformly on a local path or an
// object store URI.
func WriteSummary(uri, configURI string, t *Tally) (int, error) {
	var (
		config *tiledb.Config
		err    error
	)

	if configURI == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(configURI)
	}
	if err != nil {
		return 0, errors.Join(ErrWriteSummary, err)
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return 0, errors.Join(ErrWriteSummary, err)
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return 0, errors.Join(ErrWriteSummary, err)
	}
	defer vfs.Free()

	stream, err := vfs.Open(uri, tiledb.TILEDB_VFS_WRITE)
	if err != nil {
		return 0, errors.Join(ErrWriteSummary, err)
	}
	defer stream.Close()

	n, err := stream.Write([]byte(t.Summary()))
	if err != nil {
		return 0, errors.Join(ErrWriteSummary, err)
	}
	return n, nil
}
