package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/repository"
	"github.com/jmehdipour/washcorner-notify/internal/util"
	echo "github.com/labstack/echo/v4"
)

func listNotificationsHandler(chRepo repository.CHNotificationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := repository.NotificationFilter{Limit: 50}
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}

		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			if st, ok := model.ParseStatusKind(raw); ok {
				f.Status = st
			}
		}
		if v := c.QueryParam("success"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				f.Success = &b
			}
		}

		f.Phone = util.NormalizePhone(strings.TrimSpace(c.QueryParam("phone")))

		rows, err := chRepo.List(c.Request().Context(), f)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   f.Limit,
			"offset":  f.Offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
