package http

// registerV1Routes sets up /api/v1. Bearer auth, when configured, guards the
// whole group; /healthz stays open.
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())
	if s.cfg.BearerToken != "" {
		v1.Use(bearerAuthMiddleware(s.cfg.BearerToken))
	}

	stations := v1.Group("/stations")
	{
		stations.GET("", s.handleV1ListStations)
		stations.GET("/:code", s.handleV1GetStation)
		stations.GET("/:code/readings", s.handleV1Readings)
		stations.GET("/:code/series", s.handleV1Series)
	}

	realtime := v1.Group("/realtime")
	{
		realtime.GET("/now", s.handleV1RealtimeNow)
	}
}
