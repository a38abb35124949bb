package events

// Topic names a kind of change. Each topic carries one fixed payload type,
// noted next to the constant; subscribers assert accordingly.
type Topic string

const (
	TopicTournamentCreated      Topic = "tournament.created"      // *models.Tournament
	TopicTournamentStarted      Topic = "tournament.started"      // *models.Tournament
	TopicTournamentStateChanged Topic = "tournament.stateChanged" // *models.Tournament
	TopicTournamentDeleted      Topic = "tournament.deleted"      // tournament id (int)
	TopicRegistrationOpened     Topic = "registration.opened"     // *models.Tournament
	TopicRegistrationClosed     Topic = "registration.closed"     // *models.Tournament
	TopicRegistrationCreated    Topic = "registration.created"    // *models.Registration
	TopicRegistrationChanged    Topic = "registration.changed"    // *models.Registration
	TopicMatchUpdated           Topic = "match.updated"           // *models.Match
	TopicMatchStarted           Topic = "match.started"           // *models.Match
	TopicMatchMetadataUpdated   Topic = "match.metadataUpdated"   // *models.MatchMetadata
	TopicTeamCreated            Topic = "team.created"            // *models.Team
	TopicTeamSeedAssigned       Topic = "team.seedAssigned"       // *models.Team
)
