package dataset

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

const metaVersion = 1

// On disk a set is a directory: meta.json plus four raw little-endian
// float32 blobs in [series][step][dim] order. Values are downcast to
// float32 when written; Load returns float64 that round-trips
// bit-identically modulo that cast.
const (
	metaFile   = "meta.json"
	trainXFile = "train_x.f32"
	trainYFile = "train_y.f32"
	valXFile   = "val_x.f32"
	valYFile   = "val_y.f32"
)

type Meta struct {
	Version   int       `json:"version"`
	Created   time.Time `json:"created"`
	Seed      int64     `json:"seed"`
	Series    int       `json:"series"`
	ValSeries int       `json:"val_series"`
	Samples   int       `json:"samples"`
	Dim       int       `json:"dim"`
	Dt        float64   `json:"dt"`
}

func Save(dir string, s *Set) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	meta := Meta{
		Version:   metaVersion,
		Created:   time.Now(),
		Seed:      s.Seed,
		Series:    len(s.TrainX),
		ValSeries: len(s.ValX),
		Samples:   s.Samples(),
		Dim:       2,
		Dt:        s.Dt,
	}
	if meta.Series > 0 && len(s.TrainX[0]) > 0 {
		meta.Dim = len(s.TrainX[0][0])
	}

	f, err := os.Create(filepath.Join(dir, metaFile))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	blobs := []struct {
		name string
		data [][]dynamics.State
	}{
		{trainXFile, s.TrainX},
		{trainYFile, s.TrainY},
		{valXFile, s.ValX},
		{valYFile, s.ValY},
	}
	for _, b := range blobs {
		if err := writeBlob(filepath.Join(dir, b.name), b.data); err != nil {
			return err
		}
	}
	return nil
}

func Load(dir string) (*Set, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", metaFile, err)
	}
	if meta.Version != metaVersion {
		return nil, fmt.Errorf("dataset: unsupported version %d in %s", meta.Version, dir)
	}

	set := &Set{Dt: meta.Dt, Seed: meta.Seed}
	reads := []struct {
		name   string
		series int
		dst    *[][]dynamics.State
	}{
		{trainXFile, meta.Series, &set.TrainX},
		{trainYFile, meta.Series, &set.TrainY},
		{valXFile, meta.ValSeries, &set.ValX},
		{valYFile, meta.ValSeries, &set.ValY},
	}
	for _, r := range reads {
		blob, err := readBlob(filepath.Join(dir, r.name), r.series, meta.Samples, meta.Dim)
		if err != nil {
			return nil, err
		}
		*r.dst = blob
	}
	return set, nil
}

func writeBlob(path string, series [][]dynamics.State) error {
	flat := make([]float32, 0, blobLen(series))
	for _, s := range series {
		for _, st := range s {
			for _, v := range st {
				flat = append(flat, float32(v))
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return binary.Write(f, binary.LittleEndian, flat)
}

func readBlob(path string, series, samples, dim int) ([][]dynamics.State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	want := series * samples * dim * 4
	if len(raw) != want {
		return nil, fmt.Errorf("dataset: %s holds %d bytes, metadata requires %d", path, len(raw), want)
	}

	flat := make([]float32, series*samples*dim)
	for i := range flat {
		flat[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	out := make([][]dynamics.State, series)
	idx := 0
	for i := range out {
		out[i] = make([]dynamics.State, samples)
		for j := range out[i] {
			st := make(dynamics.State, dim)
			for k := range st {
				st[k] = float64(flat[idx])
				idx++
			}
			out[i][j] = st
		}
	}
	return out, nil
}

func blobLen(series [][]dynamics.State) int {
	n := 0
	for _, s := range series {
		for _, st := range s {
			n += len(st)
		}
	}
	return n
}
