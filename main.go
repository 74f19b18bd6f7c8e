package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"estimator/collections"
	"estimator/handlers"
	"estimator/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("main: no .env file loaded: %v", err)
	}

	app := pocketbase.New()

	gemini := services.NewGeminiClient(os.Getenv("GEMINI_API_KEY"))
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		gemini.Model = model
	}

	// Create collections, seed demo data and backfill reference numbers on
	// startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			log.Printf("Warning: seed data failed: %v", err)
		}
		if err := collections.MigrateBlankReferenceNumbers(app); err != nil {
			log.Printf("Warning: reference number migration failed: %v", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// Serve static files from ./static
		se.Router.GET("/static/{path...}", apis.Static(os.DirFS("./static"), false))

		// ── Quote CRUD ───────────────────────────────────────────
		se.Router.GET("/quotes", handlers.HandleQuoteList(app))
		se.Router.POST("/quotes", handlers.HandleQuoteCreate(app))
		se.Router.DELETE("/quotes/{id}", handlers.HandleQuoteDelete(app))

		// ── Header and rates ─────────────────────────────────────
		se.Router.POST("/quotes/{id}/header", handlers.HandleQuoteHeaderSave(app))
		se.Router.POST("/quotes/{id}/rates", handlers.HandleQuoteRates(app))

		// ── Item list editing ────────────────────────────────────
		se.Router.POST("/quotes/{id}/items", handlers.HandleItemAdd(app))
		se.Router.PATCH("/quotes/{id}/items/{itemId}", handlers.HandleItemPatch(app))
		se.Router.DELETE("/quotes/{id}/items/{itemId}", handlers.HandleItemDelete(app))
		se.Router.POST("/quotes/{id}/items/{itemId}/move", handlers.HandleItemMove(app))

		// ── AI extraction ────────────────────────────────────────
		se.Router.POST("/quotes/{id}/analyze/text", handlers.HandleAnalyzeText(app, gemini))
		se.Router.POST("/quotes/{id}/analyze/image", handlers.HandleAnalyzeImage(app, gemini))

		// ── Materials list import ────────────────────────────────
		se.Router.GET("/quotes/{id}/import", handlers.HandleImportPage(app))
		se.Router.POST("/quotes/{id}/import", handlers.HandleImportValidate(app))
		se.Router.POST("/quotes/{id}/import/commit", handlers.HandleImportCommit(app))

		// ── Export downloads ─────────────────────────────────────
		se.Router.GET("/quotes/{id}/export/csv", handlers.HandleExportCSV(app))
		se.Router.GET("/quotes/{id}/export/excel", handlers.HandleExportExcel(app))
		se.Router.GET("/quotes/{id}/export/pdf", handlers.HandleExportPDF(app))

		// Quote editor (after specific /quotes/{id}/* routes)
		se.Router.GET("/quotes/{id}", handlers.HandleQuoteView(app))

		// Redirect home to the quote list
		se.Router.GET("/", func(e *core.RequestEvent) error {
			return e.Redirect(http.StatusFound, "/quotes")
		})

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
