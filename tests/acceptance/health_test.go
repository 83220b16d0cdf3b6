package acceptance

import (
	"net/http"
)

func (s *Suite) TestHealthEndpoint() {
	resp := s.get("/health", "")
	s.Equal(http.StatusOK, resp.StatusCode, "Expected status 200")

	body := decode[map[string]any](s, resp)
	s.Equal("pass", body["status"])
	s.Equal(map[string]any{"postgres": "pass", "redis": "pass"}, body["components"])
}

func (s *Suite) TestMetricsEndpoint() {
	resp := s.get("/metrics", "")
	s.Equal(http.StatusOK, resp.StatusCode)
}
