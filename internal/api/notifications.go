package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/taskboard/internal/inbox"
	"github.com/nhle/taskboard/internal/model"
)

type inboxResponse struct {
	Items  []model.Notification `json:"items"`
	Unread int                  `json:"unread"`
}

func newInboxResponse(list []model.Notification) inboxResponse {
	if list == nil {
		list = []model.Notification{}
	}
	return inboxResponse{Items: list, Unread: model.CountUnread(list)}
}

func (s *Server) handleListNotifications(unreadOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.notify.ListMine(c.Request.Context(), UserID(c))
		if err != nil {
			abort(c, err)
			return
		}
		if unreadOnly {
			unread := make([]model.Notification, 0, len(list))
			for _, n := range list {
				if !n.Read {
					unread = append(unread, n)
				}
			}
			list = unread
		}
		c.JSON(http.StatusOK, newInboxResponse(list))
	}
}

func (s *Server) handleMarkRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := model.NotificationRef{ProjectID: c.Param("pid"), ID: c.Param("id")}
		if err := s.notify.MarkRef(c.Request.Context(), UserID(c), ref); err != nil {
			abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := s.notify.MarkAllRead(c.Request.Context(), UserID(c))
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	}
}

func (s *Server) handleClearNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := s.notify.DeleteAllMine(c.Request.Context(), UserID(c))
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": n})
	}
}

// handleStream sends the caller's inbox as server-sent events, one
// "inbox" event per snapshot. Slow clients only get the latest snapshot.
func (s *Server) handleStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		latest := make(chan []model.Notification, 1)
		w := inbox.Watch(s.live, UserID(c), func(list []model.Notification) {
			select {
			case <-latest:
			default:
			}
			latest <- list
		})
		defer w.Stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Stream(func(io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case list := <-latest:
				c.SSEvent("inbox", newInboxResponse(list))
				return true
			}
		})
	}
}
