/*
Package health probes the dependencies of the timeclock client and reports
them to the metrics health registry served on /health and /ready.

Two checkers exist:

  - APIChecker sends an unauthenticated GET to the service's /auth/me route.
    Any status below 500 means the service is reachable.
  - LocatorChecker reads one fix from the configured position source.

A Monitor runs its checkers on an interval. A component turns unhealthy only
after Config.Retries consecutive failures and recovers on the first success:

	mon := health.NewMonitor(health.DefaultConfig(),
		health.NewAPIChecker(cfg.APIURL),
		&health.LocatorChecker{Locator: cfg.Locator()},
	)
	mon.Start()
	defer mon.Stop()
*/
package health
