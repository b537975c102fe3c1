package store

import (
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/grussorusso/faasrunner/utils"
	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/net/context"
)

const prefix = "/faasrunner"

// Store archives the records of experiment runs.
type Store interface {
	Save(ctx context.Context, key string, runs []*record.Record) error
	Load(ctx context.Context, key string) ([]*record.Record, error)
}

// FromConfig returns the etcd archive when enabled, a no-op one otherwise.
func FromConfig() Store {
	if config.GetBool(config.STORE_ETCD_ENABLED, false) {
		logrus.Infof("Archiving results to etcd at %s", config.GetString(config.ETCD_ADDRESS, "localhost:2379"))
		return &EtcdStore{Timeout: 10 * time.Second}
	}
	return NopStore{}
}

// Key is the archive key of one iteration of an experiment.
func Key(function, experiment string, memory, iteration int) string {
	return fmt.Sprintf("%s/%s/%dMBs/run%d", function, experiment, memory, iteration)
}

func etcdKey(key string, r *record.Record) string {
	return path.Join(prefix, key, r.Id())
}

// EtcdStore saves every record under /faasrunner/<key>/<record id>.
type EtcdStore struct {
	Timeout time.Duration
}

func (s *EtcdStore) Save(ctx context.Context, key string, runs []*record.Record) error {
	cli, err := utils.GetEtcdClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	for _, r := range runs {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("Could not marshal record: %v", err)
		}
		if _, err := cli.Put(ctx, etcdKey(key, r), string(payload)); err != nil {
			return fmt.Errorf("Failed Put: %v", err)
		}
	}
	return nil
}

func (s *EtcdStore) Load(ctx context.Context, key string) ([]*record.Record, error) {
	cli, err := utils.GetEtcdClient()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resp, err := cli.Get(ctx, path.Join(prefix, key)+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	runs := make([]*record.Record, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		r, err := record.Parse(string(kv.Value))
		if err != nil {
			logrus.Warnf("Skipping archived record %s: %v", kv.Key, err)
			continue
		}
		runs = append(runs, r)
	}
	return runs, ctx.Err()
}

// NopStore discards everything.
type NopStore struct{}

func (NopStore) Save(context.Context, string, []*record.Record) error {
	return nil
}

func (NopStore) Load(context.Context, string) ([]*record.Record, error) {
	return nil, nil
}
