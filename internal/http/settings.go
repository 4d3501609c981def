package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/settings"
	echo "github.com/labstack/echo/v4"
)

func getSettingsHandler(store settings.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := store.Load(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("load settings failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "settings unavailable"})
		}
		return c.JSON(http.StatusOK, s)
	}
}

// putSettingsHandler replaces the whole settings document.
func putSettingsHandler(store settings.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var s model.NotificationSettings
		if err := c.Bind(&s); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
		}

		if err := store.Save(c.Request().Context(), s); err != nil {
			if errors.Is(err, settings.ErrInvalidSettings) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			c.Logger().Errorf("save settings failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "save failed"})
		}
		return c.JSON(http.StatusOK, s)
	}
}
