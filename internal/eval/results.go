package eval

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var resultsHeader = []string{
	"wall_time", "epoch",
	"energy_drift_interp", "energy_drift_extrap",
	"phase_error_interp", "phase_error_extrap",
	"traj_err_interp", "traj_err_extrap",
}

// Row is one evaluation record. Within each metric pair the
// interpolation column comes before the extrapolation column.
type Row struct {
	WallTime          float64
	Epoch             int
	EnergyDriftInterp float64
	EnergyDriftExtrap float64
	PhaseErrorInterp  float64
	PhaseErrorExtrap  float64
	TrajErrInterp     float64
	TrajErrExtrap     float64
}

// ResultsWriter appends evaluation rows to a per-run CSV file. The
// file name encodes the run stamp and the hyperparameters so repeated
// runs never collide; the header is written once, when the file does
// not exist yet.
type ResultsWriter struct {
	path string
}

func NewResultsWriter(dir, stamp string, lr float64, datasetSize, batchSize int) *ResultsWriter {
	name := fmt.Sprintf("%sresults%v%d%d.csv", stamp, lr, datasetSize, batchSize)
	return &ResultsWriter{path: filepath.Join(dir, name)}
}

func (w *ResultsWriter) Path() string { return w.path }

func (w *ResultsWriter) Append(r Row) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return err
	}

	_, statErr := os.Stat(w.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if fresh {
		if err := cw.Write(resultsHeader); err != nil {
			return err
		}
	}

	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	row := []string{
		ff(r.WallTime), strconv.Itoa(r.Epoch),
		ff(r.EnergyDriftInterp), ff(r.EnergyDriftExtrap),
		ff(r.PhaseErrorInterp), ff(r.PhaseErrorExtrap),
		ff(r.TrajErrInterp), ff(r.TrajErrExtrap),
	}
	if err := cw.Write(row); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// RunStamp names run artifacts after their start time.
func RunStamp(t time.Time) string {
	return t.Format("20060102-150405")
}
