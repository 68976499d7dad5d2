package deps

import (
	"time"

	"github.com/dailymanna/manna/internal/dispatch"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/scheduler"
	"github.com/dailymanna/manna/internal/sources"
	filestore "github.com/dailymanna/manna/internal/store/file"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	Store      *filestore.Store             // schedule document store
	Source     sources.ContentSource        // active content source
	Sender     *scheduler.DailySender       // manual daily send
	Refresher  *scheduler.CoverageRefresher // manual week refresh
	Dispatcher *dispatch.Dispatcher         // job rules and run history
}

// Now returns the current time via TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
