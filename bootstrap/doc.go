// Package bootstrap runs a portalgpt binary through a fixed lifecycle:
// defaults and validation, logger setup, start hooks, ready hooks, then
// either a signal wait (Run) or a finite task (RunTask), and finally stop
// hooks in reverse order under a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStart(func(ctx context.Context) error { return srv.Start(ctx) })
//	app.OnStop(srv.Stop)
//	return app.Run(ctx)
package bootstrap
