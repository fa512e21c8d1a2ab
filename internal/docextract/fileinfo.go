package docextract

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/joelkehle/contractreview/internal/common"
)

type FileInfo struct {
	Filename    string  `json:"filename"`
	Extension   string  `json:"extension"`
	SizeBytes   int64   `json:"size_bytes"`
	SizeMB      float64 `json:"size_mb"`
	IsSupported bool    `json:"is_supported"`
}

func FileInfoFor(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileInfo{}, common.NewNotFoundError(path)
		}
		return FileInfo{}, common.NewExtractionError(path, "stat failed", err)
	}
	if st.IsDir() {
		return FileInfo{}, common.NewNotFoundError(path)
	}
	return FileInfo{
		Filename:    filepath.Base(path),
		Extension:   Ext(path),
		SizeBytes:   st.Size(),
		SizeMB:      math.Round(float64(st.Size())/(1024*1024)*100) / 100,
		IsSupported: IsSupported(path),
	}, nil
}
