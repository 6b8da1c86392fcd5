package config

const (
	// Chat
	MaxMessageLength = 2000

	// LinkU reviews
	MaxReviewLength = 1000
	MinKindness     = 1
	MaxKindness     = 5

	// Live bus
	DefaultBusBuffer    = 64
	DefaultWSSendBuffer = 256
)

// RelationRatings are the accepted review relation values.
var RelationRatings = map[string]bool{
	"BAD":  true,
	"GOOD": true,
	"BEST": true,
}
