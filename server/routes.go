package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/compilelog"
	"github.com/meikuraledutech/dialog/editor"
	"github.com/meikuraledutech/dialog/exchange"
	"github.com/meikuraledutech/dialog/internal/ctxlog"
)

type compileResponse struct {
	Installed    bool                 `json:"installed"`
	NeedsRefresh bool                 `json:"needs_refresh"`
	Errors       int                  `json:"errors"`
	Warnings     int                  `json:"warnings"`
	Messages     []compilelog.Message `json:"messages"`
}

type duplicateRequest struct {
	IDs []string `json:"ids"`
}

// fail maps err to a status code and writes it as {"error": ...}.
func fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, dialog.ErrGraphNotFound),
		errors.Is(err, dialog.ErrNodeNotFound),
		errors.Is(err, dialog.ErrEdgeNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, dialog.ErrCycleDetected):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, dialog.ErrInvalidNode),
		errors.Is(err, dialog.ErrUnknownRef),
		errors.Is(err, editor.ErrInvalidDocument),
		errors.Is(err, exchange.ErrUnknownFormat):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badBody(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
}

func newApp(ws *editor.Workspace, logger *slog.Logger) *fiber.App {
	store := ws.Store()
	reqCtx := func(c fiber.Ctx) context.Context {
		return ctxlog.With(ctxlog.WithLogger(c.Context(), logger), "method", c.Method(), "path", c.Path())
	}
	app := fiber.New()
	app.Use(recoverer.New())

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Graphs (bulk) ─────────────────────────────────────────────────
	app.Post("/graphs", func(c fiber.Ctx) error {
		var g dialog.Graph
		if err := c.Bind().JSON(&g); err != nil {
			return badBody(c)
		}
		saved, err := ws.SaveGraph(reqCtx(c), &g)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	})

	app.Put("/graphs/:id", func(c fiber.Ctx) error {
		var g dialog.Graph
		if err := c.Bind().JSON(&g); err != nil {
			return badBody(c)
		}
		g.ID = c.Params("id")
		saved, err := ws.SaveGraph(reqCtx(c), &g)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(saved)
	})

	app.Get("/graphs/:id", func(c fiber.Ctx) error {
		g, err := ws.GetGraph(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(g)
	})

	app.Delete("/graphs/:id", func(c fiber.Ctx) error {
		if err := ws.DeleteGraph(c.Context(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// ── Compilation ───────────────────────────────────────────────────
	app.Post("/graphs/:id/compile", func(c fiber.Ctx) error {
		res, err := ws.Compile(reqCtx(c), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(compileResponse{
			Installed:    res.Installed,
			NeedsRefresh: res.NeedsRefresh,
			Errors:       res.Log.NumErrors(),
			Warnings:     res.Log.NumWarnings(),
			Messages:     res.Log.Messages(),
		})
	})

	app.Get("/graphs/:id/tree", func(c fiber.Ctx) error {
		tree := ws.Tree(c.Params("id"))
		if tree == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "graph not compiled"})
		}
		return c.JSON(tree)
	})

	app.Get("/graphs/:id/messages", func(c fiber.Ctx) error {
		msgs := ws.Messages(c.Params("id"))
		if msgs == nil {
			msgs = []compilelog.Message{}
		}
		return c.JSON(msgs)
	})

	// ── Exchange ──────────────────────────────────────────────────────
	app.Post("/graphs/:id/import", func(c fiber.Ctx) error {
		g, err := ws.Import(reqCtx(c), c.Params("id"), c.Query("format", "xml"), c.Body())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(g)
	})

	app.Get("/graphs/:id/export", func(c fiber.Ctx) error {
		format := c.Query("format", "xml")
		data, err := ws.Export(c.Context(), c.Params("id"), format)
		if err != nil {
			return fail(c, err)
		}
		if format == "xml" {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
		} else {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		}
		return c.Send(data)
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/graphs/:id/nodes", func(c fiber.Ctx) error {
		var node dialog.Node
		if err := c.Bind().JSON(&node); err != nil {
			return badBody(c)
		}
		id, err := ws.AddNode(reqCtx(c), c.Params("id"), &node)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	app.Get("/graphs/:id/nodes", func(c fiber.Ctx) error {
		nodes, err := store.ListNodes(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(nodes)
	})

	app.Post("/graphs/:id/duplicate", func(c fiber.Ctx) error {
		var req duplicateRequest
		if err := c.Bind().JSON(&req); err != nil || len(req.IDs) == 0 {
			return badBody(c)
		}
		nodes, err := ws.Duplicate(reqCtx(c), c.Params("id"), req.IDs)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(nodes)
	})

	app.Get("/nodes/:id", func(c fiber.Ctx) error {
		n, err := store.GetNode(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(n)
	})

	app.Put("/graphs/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		var node dialog.Node
		if err := c.Bind().JSON(&node); err != nil {
			return badBody(c)
		}
		node.ID = c.Params("nodeID")
		if err := ws.UpdateNode(reqCtx(c), c.Params("id"), &node); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/graphs/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		if err := ws.DeleteNode(reqCtx(c), c.Params("id"), c.Params("nodeID")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/graphs/:id/edges", func(c fiber.Ctx) error {
		var edge dialog.Edge
		if err := c.Bind().JSON(&edge); err != nil {
			return badBody(c)
		}
		id, err := ws.AddEdge(reqCtx(c), c.Params("id"), &edge)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	app.Get("/graphs/:id/edges", func(c fiber.Ctx) error {
		edges, err := store.ListEdges(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(edges)
	})

	app.Get("/edges/:id", func(c fiber.Ctx) error {
		e, err := store.GetEdge(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(e)
	})

	app.Put("/graphs/:id/edges/:edgeID", func(c fiber.Ctx) error {
		var edge dialog.Edge
		if err := c.Bind().JSON(&edge); err != nil {
			return badBody(c)
		}
		edge.ID = c.Params("edgeID")
		if err := ws.UpdateEdge(reqCtx(c), c.Params("id"), &edge); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/graphs/:id/edges/:edgeID", func(c fiber.Ctx) error {
		if err := ws.DeleteEdge(reqCtx(c), c.Params("id"), c.Params("edgeID")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	return app
}
