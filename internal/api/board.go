package api

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
)

type createProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

type renameProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

type transferOwnerRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type addMemberRequest struct {
	Email string `json:"email" binding:"required"`
}

type moveRequest struct {
	Status model.Status `json:"status" binding:"required"`
	Index  int          `json:"index"`
}

type messageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleCreateProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		p, err := s.board.CreateProject(c.Request.Context(), UserID(c), req.Name)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func (s *Server) handleRenameProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req renameProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := s.board.RenameProject(c.Request.Context(), UserID(c), c.Param("pid"), req.Name); err != nil {
			abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.board.DeleteProject(c.Request.Context(), UserID(c), c.Param("pid")); err != nil {
			abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleTransferOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferOwnerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := s.board.TransferOwner(c.Request.Context(), UserID(c), c.Param("pid"), req.UserID); err != nil {
			abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleBoard() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := s.board.Board(c.Request.Context(), UserID(c), c.Param("pid"))
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// handleBoardStream sends the project's columns as server-sent events,
// one "board" event per task change. Slow clients only get the latest
// columns.
func (s *Server) handleBoardStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		pid := c.Param("pid")
		latest := make(chan []board.Column, 1)
		failed := make(chan error, 1)
		stop, err := s.board.WatchBoard(c.Request.Context(), UserID(c), pid,
			func(cols []board.Column) {
				select {
				case <-latest:
				default:
				}
				latest <- cols
			},
			func(err error) {
				select {
				case failed <- err:
				default:
				}
			},
		)
		if err != nil {
			abort(c, err)
			return
		}
		defer stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Stream(func(io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case err := <-failed:
				log.Printf("[api] board stream of %s ended: %v", pid, err)
				return false
			case cols := <-latest:
				c.SSEvent("board", cols)
				return true
			}
		})
	}
}

func (s *Server) handleAddMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		u, err := s.board.AddMemberByEmail(c.Request.Context(), UserID(c), c.Param("pid"), req.Email)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

func (s *Server) handleRemoveMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.board.RemoveMember(c.Request.Context(), UserID(c), c.Param("pid"), c.Param("uid")); err != nil {
			abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleCreateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		var t model.Task
		if err := c.ShouldBindJSON(&t); err != nil {
			badRequest(c, err)
			return
		}
		created, err := s.board.CreateTask(c.Request.Context(), UserID(c), c.Param("pid"), t)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func (s *Server) handleUpdateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch model.TaskPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, err)
			return
		}
		t, err := s.board.UpdateTask(c.Request.Context(), UserID(c), c.Param("pid"), c.Param("tid"), patch)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

func (s *Server) handleDeleteTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.board.DeleteTask(c.Request.Context(), UserID(c), c.Param("pid"), c.Param("tid")); err != nil {
			abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleCloneTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		clone, err := s.board.CloneTask(c.Request.Context(), UserID(c), c.Param("pid"), c.Param("tid"))
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, clone)
	}
}

func (s *Server) handleMoveTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req moveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		err := s.board.MoveTask(c.Request.Context(), UserID(c), c.Param("pid"), board.Move{
			TaskID: c.Param("tid"),
			Status: req.Status,
			Index:  req.Index,
		})
		if err != nil {
			abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleToggleLock() gin.HandlerFunc {
	return func(c *gin.Context) {
		locked, err := s.board.ToggleLock(c.Request.Context(), UserID(c), c.Param("pid"), c.Param("tid"))
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"locked": locked})
	}
}

func (s *Server) handleListMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := s.board.Messages(c.Request.Context(), UserID(c), c.Param("pid"), c.Param("tid"))
		if err != nil {
			abort(c, err)
			return
		}
		if msgs == nil {
			msgs = []model.Message{}
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func (s *Server) handlePostMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		msg, err := s.board.PostMessage(c.Request.Context(), UserID(c), c.Param("pid"), c.Param("tid"), req.Text)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}
