package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Field     string             `json:"field"`
	Timestamp time.Time          `json:"timestamp"`
	Method    string             `json:"method"`
	Rtol      float64            `json:"rtol"`
	Atol      float64            `json:"atol"`
	Duration  float64            `json:"duration"`
	Samples   int                `json:"samples"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one run to its own directory and returns the run id.
func (s *Store) Save(field, method string, rtol, atol float64, tr *dynamics.Trajectory, metrics map[string]float64) (string, error) {
	if tr == nil || tr.Len() == 0 {
		return "", fmt.Errorf("storage: refusing to save an empty trajectory")
	}

	runID := fmt.Sprintf("%s_%d", field, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Field:     field,
		Timestamp: time.Now(),
		Method:    method,
		Rtol:      rtol,
		Atol:      atol,
		Duration:  tr.Times[tr.Len()-1] - tr.Times[0],
		Samples:   tr.Len(),
		Metrics:   metrics,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "states.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(stateHeader(len(tr.States[0]))); err != nil {
		return "", err
	}
	for i := range tr.States {
		row := []string{strconv.FormatFloat(tr.Times[i], 'f', 6, 64)}
		for _, val := range tr.States[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// stateHeader names planar components the way the rest of the lab does;
// other dimensions fall back to indexed columns.
func stateHeader(dim int) []string {
	if dim == 2 {
		return []string{"time", "x", "x_dt"}
	}
	header := []string{"time"}
	for i := 0; i < dim; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	return header
}

func (s *Store) readMeta(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List scans the base directory for runs, newest first. Entries without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	meta, err := s.readMeta(runID)
	if err != nil {
		return nil, fmt.Errorf("storage: run %s: %w", runID, err)
	}
	return meta, nil
}

// LoadTrajectory reads the sampled states of a run back into memory.
func (s *Store) LoadTrajectory(runID string) (*dynamics.Trajectory, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return &dynamics.Trajectory{}, nil
	}

	tr := &dynamics.Trajectory{
		Times:  make([]float64, 0, len(records)-1),
		States: make([]dynamics.State, 0, len(records)-1),
	}
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 2 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: bad time %q in row %d: %w", record[0], i, err)
		}

		state := make(dynamics.State, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("storage: bad value %q in row %d: %w", record[j], i, err)
			}
			state = append(state, val)
		}

		tr.Times = append(tr.Times, t)
		tr.States = append(tr.States, state)
	}

	return tr, nil
}

type exportDoc struct {
	Meta   RunMetadata      `json:"meta"`
	Times  []float64        `json:"times"`
	States []dynamics.State `json:"states"`
}

// ExportJSON streams one run, metadata and samples together, to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tr, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportDoc{Meta: *meta, Times: tr.Times, States: tr.States})
}
