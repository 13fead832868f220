package utils

import (
	"os"
	"sync"

	"calstore/src-server/calendar"
	"calstore/src-server/store"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

type AppState struct {
	Config  *Config
	Store   store.Store
	Manager *calendar.Manager
	When    *when.Parser
	Metric  *Metric

	AppCloseSignalChan chan os.Signal

	gracefulShutdownChans []*chan struct{}
	gracefulShutdownMu    sync.Mutex
}

func NewAppState() *AppState {
	as := &AppState{
		AppCloseSignalChan: make(chan os.Signal, 1),
	}

	// env
	as.Config = NewConfig()

	// date parser
	as.When = when.New(nil)
	as.When.Add(en.All...)
	as.When.Add(common.All...)

	as.Metric = NewMetric()

	// event document on disk and its single-writer manager
	as.Store = store.NewFileStore(as.Config.GetDataFile())
	as.Manager = calendar.NewManager(
		as.Store,
		calendar.NewAllocator(),
		as.Config.GetLockTimeout(),
	)
	as.Manager.WriteLatency = as.Metric.StoreWrite

	return as
}

// Every background loop that wants to stop cleanly grabs one of these and
// waits for it to close.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	as.gracefulShutdownMu.Lock()
	defer as.gracefulShutdownMu.Unlock()
	ch := make(chan struct{})
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, &ch)
	return &ch
}

func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownMu.Lock()
	defer as.gracefulShutdownMu.Unlock()
	for _, ch := range as.gracefulShutdownChans {
		close(*ch)
	}
	as.gracefulShutdownChans = nil
}
