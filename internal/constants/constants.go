package constants

// Advisory lock identifiers shared by every instance.
const (
	MigrationLock = iota + 7100
	GeneratorLock
)

var Locks = []int{
	MigrationLock,
	GeneratorLock,
}

const (
	// MaxPublishAttempts bounds the publish loop: the first attempt plus one
	// retry after an AUTH_INVALID failure.
	MaxPublishAttempts = 2

	// CandidateMultiplier caps how many candidates the generator loads
	// relative to ItemsPerDayMax.
	CandidateMultiplier = 3
)
