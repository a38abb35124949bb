package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bracketforge/bracketforge/handlers"
	"github.com/bracketforge/bracketforge/middleware"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Tournaments   *handlers.TournamentHandler
	Registrations *handlers.RegistrationHandler
	Matches       *handlers.MatchHandler
	WebSocket     *handlers.WebSocketHandler
}

// InitRoutes wires the HTTP surface: public read and viewer endpoints,
// public registration submission, and admin-only mutations behind JWT.
func InitRoutes(h Handlers, jwtSecret []byte) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Post("/auth/login", h.Auth.LoginHandler)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournaments.ListHandler)
		r.Get("/{tournamentID}", h.Tournaments.GetByIDHandler)
		r.Get("/{tournamentID}/registrations", h.Registrations.ListHandler)
		r.Get("/{tournamentID}/teams", h.Registrations.ListTeamsHandler)
		r.Get("/{tournamentID}/matches", h.Matches.ListHandler)
		r.Get("/{tournamentID}/matches/{matchID}", h.Matches.GetHandler)
		r.Get("/{tournamentID}/matches/{matchID}/metadata", h.Matches.GetMetadataHandler)

		// Entrants submit their own registrations while the window is open.
		r.Post("/{tournamentID}/registrations", h.Registrations.SubmitHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize("admin"))

			r.Post("/", h.Tournaments.CreateHandler)
			r.Put("/{tournamentID}/state", h.Tournaments.SetStateHandler)
			r.Post("/{tournamentID}/start", h.Tournaments.StartHandler)
			r.Delete("/{tournamentID}", h.Tournaments.DeleteHandler)
			r.Put("/{tournamentID}/banner", h.Tournaments.UploadBannerHandler)

			r.Put("/{tournamentID}/registrations/{email}/approval", h.Registrations.ApprovalHandler)
			r.Post("/{tournamentID}/registrations/pair", h.Registrations.PairHandler)
			r.Post("/{tournamentID}/teams/convert", h.Registrations.ConvertHandler)
			r.Put("/{tournamentID}/teams/seeds", h.Registrations.AssignSeedsHandler)

			r.Post("/{tournamentID}/matches/{matchID}/start", h.Matches.StartHandler)
			r.Post("/{tournamentID}/matches/{matchID}/score", h.Matches.ScoreHandler)
			r.Post("/{tournamentID}/matches/{matchID}/forfeit", h.Matches.ForfeitHandler)
			r.Post("/{tournamentID}/matches/{matchID}/winner", h.Matches.WinnerHandler)
			r.Post("/{tournamentID}/matches/{matchID}/draw", h.Matches.DrawHandler)
			r.Post("/{tournamentID}/matches/{matchID}/reset", h.Matches.ResetHandler)
			r.Patch("/{tournamentID}/matches/{matchID}", h.Matches.PatchHandler)
			r.Put("/{tournamentID}/matches/{matchID}/metadata", h.Matches.SetMetadataHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
