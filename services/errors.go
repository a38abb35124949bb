package services

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// status codes through Kind; services always return one of them (possibly
// wrapped) so callers see a stable failure taxonomy.
var (
	// Missing resources
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrStageNotFound        = errors.New("no stage found for tournament")
	ErrMetadataNotFound     = errors.New("match metadata not found")

	// Lifecycle conflicts
	ErrInvalidTransition        = errors.New("invalid tournament state transition")
	ErrTournamentAlreadyRunning = errors.New("tournament has already started")
	ErrTournamentNotSeeded      = errors.New("tournament teams are not fully seeded")
	ErrRegistrationClosed       = errors.New("tournament registration is not open")

	// Match protocol conflicts
	ErrMatchNotRunning = errors.New("match is not running")
	ErrMatchNotReady   = errors.New("match is not ready to start")

	// Validation and business rules
	ErrInvalidDateRange  = errors.New("tournament end date must not precede start date")
	ErrInvalidTeamSize   = errors.New("team size must be at least 1")
	ErrNoStagesDeclared  = errors.New("tournament declares no stages")
	ErrTeamNotInMatch    = errors.New("team is not part of this match")
	ErrTeamNotConverted  = errors.New("team has no bracket participant yet")
	ErrPairCohortInvalid = errors.New("pairing requires exactly team-size distinct approved unpaired registrations")

	// Conflicting duplicates
	ErrRegistrationEmailTaken = errors.New("a registration with this email already exists for the tournament")
	ErrTeamCodeAlreadySet     = errors.New("registration already carries a team code")

	// Downstream collaborators
	ErrBracketUnavailable     = errors.New("bracket engine unavailable")
	ErrPersistenceUnavailable = errors.New("persistence collaborator unavailable")
)

// ErrorKind is the transport-facing failure taxonomy.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindConflict
	KindInvalidArgument
	KindAlreadyExists
	KindUnavailable
)

var errorKinds = map[error]ErrorKind{
	ErrTournamentNotFound:   KindNotFound,
	ErrRegistrationNotFound: KindNotFound,
	ErrTeamNotFound:         KindNotFound,
	ErrMatchNotFound:        KindNotFound,
	ErrStageNotFound:        KindNotFound,
	ErrMetadataNotFound:     KindNotFound,

	ErrInvalidTransition:        KindConflict,
	ErrTournamentAlreadyRunning: KindConflict,
	ErrTournamentNotSeeded:      KindConflict,
	ErrRegistrationClosed:       KindConflict,
	ErrMatchNotRunning:          KindConflict,
	ErrMatchNotReady:            KindConflict,

	ErrInvalidDateRange:  KindInvalidArgument,
	ErrInvalidTeamSize:   KindInvalidArgument,
	ErrNoStagesDeclared:  KindInvalidArgument,
	ErrTeamNotInMatch:    KindInvalidArgument,
	ErrTeamNotConverted:  KindInvalidArgument,
	ErrPairCohortInvalid: KindInvalidArgument,

	ErrRegistrationEmailTaken: KindAlreadyExists,
	ErrTeamCodeAlreadySet:     KindAlreadyExists,

	ErrBracketUnavailable:     KindUnavailable,
	ErrPersistenceUnavailable: KindUnavailable,
}

// Kind classifies err against the taxonomy, unwrapping as needed.
func Kind(err error) ErrorKind {
	for sentinel, kind := range errorKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}
