// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"papyrus/config"
	"papyrus/internal/anchors"
	"papyrus/internal/imagecache"
	"papyrus/internal/metrics"
	"papyrus/internal/storage"
)

type envKey struct{}

// LocalEnv keeps everything the program needs in a single place: the
// resolved configuration plus the long-lived collaborators that are built
// once per document and threaded through every subcommand (§9 Design
// notes).
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by paginate/read subcommands, set once the document's cache
	// directory has been resolved.
	CacheDir string
	Store    storage.Storage
	Metrics  *metrics.Metrics
	Images   *imagecache.Cache
	Anchors  *anchors.Index

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
