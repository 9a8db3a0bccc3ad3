package catalog

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/gridclash/internal/game"
	"github.com/kiliankoe/gridclash/internal/grid"
	"github.com/rs/zerolog/log"
)

// Mount registers the catalog REST API on r.
func Mount(r gin.IRouter, st Store) {
	api := r.Group("/api")

	api.GET("/characters", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"characters": game.Characters})
	})

	api.GET("/maps", func(c *gin.Context) {
		maps, err := st.List(c.Request.Context(), c.Query("visible") == "true")
		if err != nil {
			fail(c, err)
			return
		}
		if maps == nil {
			maps = []Summary{}
		}
		c.JSON(http.StatusOK, maps)
	})

	api.GET("/maps/:id", func(c *gin.Context) {
		m, err := st.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	})

	api.PUT("/maps/:id", func(c *gin.Context) {
		var m grid.Map
		if err := c.BindJSON(&m); err != nil {
			return
		}
		m.ID = c.Param("id")
		if err := st.Put(c.Request.Context(), &m); err != nil {
			fail(c, err)
			return
		}
		log.Info().Str("map", m.ID).Str("name", m.Name).Msg("map saved")
		c.JSON(http.StatusOK, m)
	})

	api.DELETE("/maps/:id", func(c *gin.Context) {
		if err := st.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.POST("/maps/import", func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
			return
		}
		m, err := Import(c.Request.Context(), st, raw)
		if err != nil {
			fail(c, err)
			return
		}
		log.Info().Str("map", m.ID).Str("name", m.Name).Msg("map imported")
		c.JSON(http.StatusCreated, m)
	})
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "map_not_found"})
	case errors.Is(err, ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_name", "message": err.Error()})
	case errors.Is(err, grid.ErrInvalidMap), errors.Is(err, grid.ErrOutOfBounds):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_map", "message": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("catalog")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
