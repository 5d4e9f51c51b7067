package board

import (
	"context"
	"regexp"
	"strings"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/notify"
)

var (
	emailMention  = regexp.MustCompile(`@([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[A-Za-z]{2,})`)
	handleMention = regexp.MustCompile(`@([A-Za-z0-9._-]+)`)
)

// ExtractMentions returns the ids of the members mentioned in text as
// @email, @handle (the email local part) or @displayname with spaces
// removed. The author is never included.
func ExtractMentions(text string, members []model.User, authorID string) []string {
	lookup := make(map[string]string, len(members)*3)
	for _, u := range members {
		if email := strings.ToLower(u.Email); email != "" {
			lookup[email] = u.ID
		}
		if h := u.Handle(); h != "" {
			lookup[h] = u.ID
		}
		if dn := strings.ToLower(strings.Join(strings.Fields(u.DisplayName), "")); dn != "" {
			lookup[dn] = u.ID
		}
	}

	var ids []string
	seen := make(map[string]bool)
	add := func(key string) {
		uid, ok := lookup[strings.ToLower(key)]
		if !ok || uid == authorID || seen[uid] {
			return
		}
		seen[uid] = true
		ids = append(ids, uid)
	}
	for _, m := range emailMention.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range handleMention.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return ids
}

// PostMessage stores a chat message on a task and notifies the members it
// mentions. Members only.
func (s *Service) PostMessage(ctx context.Context, actor, projectID, taskID, text string) (model.Message, error) {
	p, err := s.memberProject(ctx, "posting message", actor, projectID)
	if err != nil {
		return model.Message{}, err
	}
	if _, err := s.store.GetTask(ctx, projectID, taskID); err != nil {
		return model.Message{}, err
	}

	msg, err := s.store.CreateMessage(ctx, model.Message{
		ProjectID: projectID,
		TaskID:    taskID,
		UserID:    actor,
		Text:      text,
	})
	if err != nil {
		return model.Message{}, err
	}

	members, err := s.store.GetUsers(ctx, p.Members)
	if err != nil {
		sideEffect("mention", err)
		return msg, nil
	}
	if mentioned := ExtractMentions(text, members, actor); len(mentioned) > 0 {
		sideEffect("mention", s.notifier.NotifyMentions(ctx, notify.Mentions{
			ProjectID:    projectID,
			TaskID:       taskID,
			RecipientIDs: mentioned,
			ActorID:      actor,
			MessageID:    msg.ID,
		}))
	}
	return msg, nil
}

// Messages returns the chat of a task. Members only.
func (s *Service) Messages(ctx context.Context, actor, projectID, taskID string) ([]model.Message, error) {
	if _, err := s.memberProject(ctx, "reading messages", actor, projectID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, projectID, taskID)
}
