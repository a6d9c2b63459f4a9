// Package zip bundles derived project artifacts into a downloadable archive.
package zip

import (
	"archive/zip"
	"bytes"
	"errors"
	"sort"
)

type Asset struct {
	Filename string
	Data     []byte
}

// ArchiveAssets packs the assets into a zip archive with entries ordered by
// filename so archives for the same project are byte stable.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	if len(assets) == 0 {
		return nil, errors.New("zip: no assets to archive")
	}
	sorted := make([]Asset, len(assets))
	copy(sorted, assets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range sorted {
		if asset.Filename == "" {
			continue
		}
		w, err := zw.Create(asset.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
