package store

import (
	"testing"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/grussorusso/faasrunner/utils"
	"golang.org/x/net/context"
)

func TestKey(t *testing.T) {
	utils.AssertEquals(t, "hello/exp/512MBs/run3", Key("hello", "exp", 512, 3))

	r := record.New()
	r.Set(record.RunId, record.IntValue(1))
	r.Set(record.ThreadId, record.IntValue(2))
	utils.AssertEquals(t, "/faasrunner/hello/exp/512MBs/run3/1.2", etcdKey(Key("hello", "exp", 512, 3), r))
}

func TestFromConfig(t *testing.T) {
	_, nop := FromConfig().(NopStore)
	utils.AssertTrue(t, nop)

	config.Set(config.STORE_ETCD_ENABLED, true)
	defer config.Set(config.STORE_ETCD_ENABLED, false)
	_, etcd := FromConfig().(*EtcdStore)
	utils.AssertTrue(t, etcd)
}

func TestNopStore(t *testing.T) {
	s := NopStore{}
	utils.AssertNil(t, s.Save(context.Background(), "k", []*record.Record{record.New()}))
	runs, err := s.Load(context.Background(), "k")
	utils.AssertNil(t, err)
	utils.AssertEquals(t, 0, len(runs))
}
