package experiment

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// PreparePayloads merges every payload with the payloads loaded from
// PayloadFolder and with ParentPayload. On key conflicts the priority is
// payloads > payload folder > parent payload. When the folder holds more
// payloads than the list, the list is repeated to match it (and truncated).
func (e *Experiment) PreparePayloads() {
	if e.PayloadFolder != "" {
		if info, err := os.Stat(e.PayloadFolder); err == nil && info.IsDir() {
			fromFolder := loadPayloadFolder(e.PayloadFolder)
			if len(fromFolder) > 0 && len(e.Payloads) > 0 {
				repeated := make([]Payload, 0, len(fromFolder))
				for i := 0; len(repeated) < len(fromFolder); i++ {
					repeated = append(repeated, e.Payloads[i%len(e.Payloads)])
				}
				merged := make([]Payload, len(fromFolder))
				for j, p := range repeated {
					merged[j] = Merge(fromFolder[j], p)
				}
				e.Payloads = merged
			}
		} else {
			logrus.Warnf("Not loading payloads from folder %s: not a directory", e.PayloadFolder)
		}
	}

	for j, p := range e.Payloads {
		e.Payloads[j] = Merge(e.ParentPayload, p)
	}
}

func loadPayloadFolder(dir string) []Payload {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logrus.Errorf("Cannot list payload folder %s: %v", dir, err)
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	payloads := make([]Payload, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logrus.Errorf("Error loading %s: %v", path, err)
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var p Payload
		if err := dec.Decode(&p); err != nil {
			logrus.Errorf("Error loading %s: %v", path, err)
			continue
		}
		payloads = append(payloads, p)
	}
	return payloads
}

// Merge returns a new payload with the attributes of base overridden by top.
func Merge(base, top Payload) Payload {
	out := make(Payload, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}

// Contains reports whether name is listed.
func Contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
