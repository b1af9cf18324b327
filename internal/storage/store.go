// Package storage persists driver results under a base directory, one
// directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/multicart/internal/config"
	"github.com/san-kum/multicart/internal/driver"
	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/env"
	"github.com/san-kum/multicart/internal/spaces"
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrNoTrajectory = errors.New("storage: run has no trajectory")
)

var stateFields = []string{"x", "x_dot", "theta", "theta_dot"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) BaseDir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Carts      int                `json:"carts"`
	Policy     string             `json:"policy"`
	Integrator string             `json:"integrator"`
	Tau        float64            `json:"tau"`
	Episodes   int                `json:"episodes"`
	MaxSteps   int                `json:"max_steps"`
	Config     *config.Config     `json:"config,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// NewMetadata fills the run description from cfg.
func NewMetadata(cfg *config.Config) RunMetadata {
	return RunMetadata{
		Seed:       cfg.Run.Seed,
		Carts:      cfg.Env.Carts,
		Policy:     cfg.Run.Policy,
		Integrator: cfg.Physics.Integrator,
		Tau:        cfg.Physics.Tau,
		Episodes:   cfg.Run.Episodes,
		MaxSteps:   cfg.Run.MaxSteps,
		Config:     cfg.Clone(),
	}
}

type EpisodeRecord struct {
	Index       int                `json:"index"`
	Steps       int                `json:"steps"`
	Return      float64            `json:"return"`
	Done        bool               `json:"done"`
	FailedUnits []int              `json:"failed_units"`
	Metrics     map[string]float64 `json:"metrics"`
}

func newRunID(now time.Time) string {
	return fmt.Sprintf("run_%d_%s", now.Unix(), uuid.NewString()[:8])
}

// Save writes meta and result into a new run directory and returns its id.
// A failed save removes the partly written directory.
func (s *Store) Save(meta RunMetadata, result *driver.Result) (runID string, err error) {
	now := time.Now()
	runID = newRunID(now)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(runDir)
			runID = ""
		}
	}()

	meta.ID = runID
	meta.Timestamp = now
	meta.Metrics = result.Metrics

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", fmt.Errorf("run %s metadata: %w", runID, err)
	}
	if err := writeEpisodes(filepath.Join(runDir, "episodes.csv"), result.Episodes); err != nil {
		return "", fmt.Errorf("run %s episodes: %w", runID, err)
	}

	hasTrajectory := false
	for _, ep := range result.Episodes {
		if len(ep.Trajectory) > 0 {
			hasTrajectory = true
			break
		}
	}
	if hasTrajectory {
		if err := writeTrajectory(filepath.Join(runDir, "trajectory.csv"), result.Episodes); err != nil {
			return "", fmt.Errorf("run %s trajectory: %w", runID, err)
		}
	}

	return runID, nil
}

// closeFile closes f and keeps the first error seen.
func closeFile(f *os.File, err *error) {
	if cerr := f.Close(); *err == nil {
		*err = cerr
	}
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func metricNames(episodes []driver.EpisodeResult) []string {
	seen := make(map[string]bool)
	for _, ep := range episodes {
		for name := range ep.Metrics {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeEpisodes(path string, episodes []driver.EpisodeResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)

	w := csv.NewWriter(f)

	names := metricNames(episodes)
	header := append([]string{"episode", "steps", "return", "done", "failed_units"}, names...)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, ep := range episodes {
		failed := make([]string, len(ep.FailedUnits))
		for i, u := range ep.FailedUnits {
			failed[i] = strconv.Itoa(u)
		}
		row := []string{
			strconv.Itoa(ep.Index),
			strconv.Itoa(ep.Steps),
			strconv.FormatFloat(ep.Return, 'f', 6, 64),
			strconv.FormatBool(ep.Done),
			strings.Join(failed, ";"),
		}
		for _, name := range names {
			row = append(row, strconv.FormatFloat(ep.Metrics[name], 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func writeTrajectory(path string, episodes []driver.EpisodeResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)

	w := csv.NewWriter(f)

	carts := 0
	for _, ep := range episodes {
		if len(ep.Trajectory) > 0 {
			carts = len(ep.Trajectory[0].Obs)
			break
		}
	}

	header := []string{"episode", "step", "reward", "done"}
	for i := 0; i < carts; i++ {
		header = append(header, fmt.Sprintf("a%d", i))
	}
	for i := 0; i < carts; i++ {
		for _, field := range stateFields {
			header = append(header, fmt.Sprintf("c%d_%s", i, field))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, ep := range episodes {
		for _, p := range ep.Trajectory {
			row := []string{
				strconv.Itoa(ep.Index),
				strconv.Itoa(p.Step),
				strconv.FormatFloat(p.Reward, 'f', 6, 64),
				strconv.FormatBool(p.Done),
			}
			for _, a := range p.Action {
				row = append(row, strconv.Itoa(a))
			}
			for _, s := range p.Obs {
				for _, v := range s {
					row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
				}
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the metadata of every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadEpisodes(runID string) ([]EpisodeRecord, error) {
	csvPath := filepath.Join(s.baseDir, runID, "episodes.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []EpisodeRecord{}, nil
	}

	header := records[0]
	episodes := make([]EpisodeRecord, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) < 5 {
			continue
		}

		var ep EpisodeRecord
		if ep.Index, err = strconv.Atoi(record[0]); err != nil {
			return nil, fmt.Errorf("episode index %q: %w", record[0], err)
		}
		if ep.Steps, err = strconv.Atoi(record[1]); err != nil {
			return nil, fmt.Errorf("episode steps %q: %w", record[1], err)
		}
		if ep.Return, err = strconv.ParseFloat(record[2], 64); err != nil {
			return nil, fmt.Errorf("episode return %q: %w", record[2], err)
		}
		ep.Done = record[3] == "true"
		ep.FailedUnits = []int{}
		if record[4] != "" {
			for _, field := range strings.Split(record[4], ";") {
				u, err := strconv.Atoi(field)
				if err != nil {
					return nil, fmt.Errorf("failed unit %q: %w", field, err)
				}
				ep.FailedUnits = append(ep.FailedUnits, u)
			}
		}

		ep.Metrics = make(map[string]float64)
		for j := 5; j < len(record) && j < len(header); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			ep.Metrics[header[j]] = val
		}
		episodes = append(episodes, ep)
	}

	return episodes, nil
}

// LoadTrajectory reads the recorded steps of one episode in step order.
func (s *Store) LoadTrajectory(runID string, episode int) ([]driver.Point, error) {
	if _, err := s.Load(runID); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoTrajectory, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("trajectory header: %w", err)
	}
	width := 1 + len(stateFields)
	if len(header) < 4 || (len(header)-4)%width != 0 {
		return nil, fmt.Errorf("trajectory header has %d columns", len(header))
	}
	carts := (len(header) - 4) / width

	points := make([]driver.Point, 0)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ep, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("trajectory episode %q: %w", record[0], err)
		}
		if ep != episode {
			continue
		}

		p, err := parsePoint(record, carts)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s episode %d", ErrNoTrajectory, runID, episode)
	}
	return points, nil
}

func parsePoint(record []string, carts int) (driver.Point, error) {
	var p driver.Point
	var err error
	if p.Step, err = strconv.Atoi(record[1]); err != nil {
		return p, fmt.Errorf("trajectory step %q: %w", record[1], err)
	}
	if p.Reward, err = strconv.ParseFloat(record[2], 64); err != nil {
		return p, fmt.Errorf("trajectory reward %q: %w", record[2], err)
	}
	p.Done = record[3] == "true"

	p.Action = make(spaces.Action, carts)
	for i := range p.Action {
		if p.Action[i], err = strconv.Atoi(record[4+i]); err != nil {
			return p, fmt.Errorf("trajectory action %q: %w", record[4+i], err)
		}
	}

	p.Obs = make(env.Observation, carts)
	col := 4 + carts
	for i := range p.Obs {
		st := make(dynamo.State, len(stateFields))
		for j := range st {
			if st[j], err = strconv.ParseFloat(record[col], 64); err != nil {
				return p, fmt.Errorf("trajectory state %q: %w", record[col], err)
			}
			col++
		}
		p.Obs[i] = st
	}
	return p, nil
}

type ExportData struct {
	Run      RunMetadata     `json:"run"`
	Episodes []EpisodeRecord `json:"episodes"`
}

// ExportJSON writes a stored run and its episodes as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	episodes, err := s.LoadEpisodes(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Episodes: episodes})
}
