package schedule

const (
	// GenerateEndpoint kicks off season schedule generation for a league.
	GenerateEndpoint = "/api/v1/schedules/generate"

	// AuthHeader carries the service-to-service token.
	AuthHeader = "X-Service-Token"
)
