package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/lithammer/shortuuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Preamble is the first line of a report file.
func Preamble(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000000") + " - FaaSRunner Partest Version " + Version + "\n"
}

// WriteFile saves rep to <base>.csv. With dumpRuns, every run is also saved
// as a JSON file inside the <base> directory.
func WriteFile(base string, rep *Report, runs []*record.Record, dumpRuns bool) error {
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return errors.Wrap(err, "cannot create output directory")
	}
	content := Preamble(time.Now()) + rep.String()
	if err := os.WriteFile(base+".csv", []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "cannot write report %s.csv", base)
	}
	if !dumpRuns || len(runs) == 0 {
		return nil
	}

	if err := os.MkdirAll(base, 0755); err != nil {
		return errors.Wrap(err, "cannot create runs directory")
	}
	for _, r := range runs {
		data, err := json.Marshal(r)
		if err != nil {
			return errors.Wrapf(err, "cannot encode run %s", r.Id())
		}
		name := fmt.Sprintf("%s-%s.json", r.Id(), shortuuid.New())
		if err := os.WriteFile(filepath.Join(base, name), data, 0644); err != nil {
			return errors.Wrapf(err, "cannot write run %s", r.Id())
		}
	}
	return nil
}

// LoadFolder reads every JSON response saved in dir, in file name order.
// Unreadable files are skipped.
func LoadFolder(dir string) ([]*record.Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", dir)
	}
	runs := make([]*record.Record, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logrus.Warnf("Error loading %s: %v", path, err)
			continue
		}
		r, err := record.Parse(string(data))
		if err != nil {
			logrus.Warnf("Error loading %s: %v", path, err)
			continue
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// FromFolder compiles the report of the responses saved in dir, for example
// those of asynchronous calls collected after the experiment.
func FromFolder(dir string, exp *experiment.Experiment) (*Report, []*record.Record, error) {
	runs, err := LoadFolder(dir)
	if err != nil {
		return nil, nil, err
	}
	return Generate(runs, exp), runs, nil
}

// Split writes every section of a report file in its own CSV file, inside
// "<file> - split". It returns the directory.
func Split(file string) (string, error) {
	dir := strings.TrimSuffix(file, ".csv") + " - split"
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("folder %s already exists", dir)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read %s", file)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	for _, chunk := range strings.Split(string(data), "\n\n") {
		lines := strings.Split(chunk, "\n")
		if len(lines) < 2 {
			continue
		}
		name := strings.NewReplacer(":", "", "/", "_").Replace(lines[0])
		var b strings.Builder
		for _, line := range lines[1:] {
			if strings.Contains(line, ",") {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
		path := filepath.Join(dir, name+".csv")
		logrus.Infof("Writing file %s", path)
		if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
			return dir, errors.Wrapf(err, "cannot write %s", path)
		}
	}
	return dir, nil
}
