package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nhle/taskboard/internal/model"
)

type userDoc struct {
	model.User `bson:",inline"`
	EmailLower string `bson:"email_lower"`
}

// CreateProject inserts a project with its owner as the first member.
func (s *MongoStore) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	const op = "creating project"
	if strings.TrimSpace(p.Name) == "" || p.Owner == "" {
		return model.Project{}, Errorf(op, CodeInvalidArgument, "project name and owner are required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Members = withMember(p.Members, p.Owner)
	p.CreatedAt = s.now().UTC()

	if _, err := s.projects.InsertOne(ctx, p); err != nil {
		return model.Project{}, classifyMongo(op, err)
	}
	return p, nil
}

// GetProject retrieves a project by id.
func (s *MongoStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := s.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, classifyMongo("getting project "+id, err)
	}
	return &p, nil
}

// ProjectsForMember returns the projects whose member list contains uid.
func (s *MongoStore) ProjectsForMember(ctx context.Context, uid string) ([]model.Project, error) {
	const op = "querying projects"
	cursor, err := s.projects.Find(ctx, bson.M{"members": uid},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, classifyMongo(op, err)
	}
	var projects []model.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, classifyMongo(op, err)
	}
	return projects, nil
}

// WatchProjectsForMember runs ProjectsForMember as a live query.
func (s *MongoStore) WatchProjectsForMember(
	uid string,
	onChange func([]model.Project),
	onError func(error),
) Unsubscribe {
	return watchStream(s.projects,
		func(ctx context.Context) ([]model.Project, error) {
			return s.ProjectsForMember(ctx, uid)
		},
		onChange, onError,
	)
}

// RenameProject changes the display name of a project.
func (s *MongoStore) RenameProject(ctx context.Context, id, name string) error {
	const op = "renaming project"
	if strings.TrimSpace(name) == "" {
		return Errorf(op, CodeInvalidArgument, "project name must not be empty")
	}
	return s.updateProject(ctx, op, id, bson.M{"$set": bson.M{"name": name}})
}

// DeleteProject removes a project together with its tasks, messages and
// notifications.
func (s *MongoStore) DeleteProject(ctx context.Context, id string) error {
	const op = "deleting project"
	res, err := s.projects.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classifyMongo(op, err)
	}
	if res.DeletedCount == 0 {
		return Errorf(op, CodeNotFound, "project %s not found", id)
	}

	for _, coll := range []*mongo.Collection{s.tasks, s.messages, s.notifications} {
		if _, err := coll.DeleteMany(ctx, bson.M{"project_id": id}); err != nil {
			return classifyMongo(op, err)
		}
	}
	return nil
}

// AddMember adds uid to the member list.
func (s *MongoStore) AddMember(ctx context.Context, projectID, uid string) error {
	return s.updateProject(ctx, "adding member", projectID,
		bson.M{"$addToSet": bson.M{"members": uid}})
}

// RemoveMember removes uid from the member list.
func (s *MongoStore) RemoveMember(ctx context.Context, projectID, uid string) error {
	return s.updateProject(ctx, "removing member", projectID,
		bson.M{"$pull": bson.M{"members": uid}})
}

// SetOwner makes uid the owner, adding it to the members if needed.
func (s *MongoStore) SetOwner(ctx context.Context, projectID, uid string) error {
	return s.updateProject(ctx, "transferring ownership", projectID, bson.M{
		"$set":      bson.M{"owner": uid},
		"$addToSet": bson.M{"members": uid},
	})
}

func (s *MongoStore) updateProject(ctx context.Context, op, id string, update bson.M) error {
	res, err := s.projects.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return classifyMongo(op, err)
	}
	if res.MatchedCount == 0 {
		return Errorf(op, CodeNotFound, "project %s not found", id)
	}
	return nil
}

// CreateTask inserts a new task, generating its id and timestamps.
func (s *MongoStore) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	const op = "creating task"
	if strings.TrimSpace(t.Title) == "" {
		return model.Task{}, Errorf(op, CodeInvalidArgument, "task title must not be empty")
	}
	n, err := s.projects.CountDocuments(ctx, bson.M{"_id": t.ProjectID})
	if err != nil {
		return model.Task{}, classifyMongo(op, err)
	}
	if n == 0 {
		return model.Task{}, Errorf(op, CodeNotFound, "project %s not found", t.ProjectID)
	}

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.StatusBacklog
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.tasks.InsertOne(ctx, t); err != nil {
		return model.Task{}, classifyMongo(op, err)
	}
	return t, nil
}

// GetTask retrieves a task of a project by id.
func (s *MongoStore) GetTask(ctx context.Context, projectID, id string) (*model.Task, error) {
	var t model.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id, "project_id": projectID}).Decode(&t)
	if err != nil {
		return nil, classifyMongo("getting task "+id, err)
	}
	return &t, nil
}

// UpdateTask applies the non-nil fields of patch.
func (s *MongoStore) UpdateTask(ctx context.Context, projectID, id string, patch model.TaskPatch) error {
	const op = "updating task"
	set := bson.M{"updated_at": s.now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Assignee != nil {
		set["assignee"] = *patch.Assignee
	}
	if patch.Order != nil {
		set["order"] = *patch.Order
	}
	if patch.Locked != nil {
		set["locked"] = *patch.Locked
	}

	res, err := s.tasks.UpdateOne(ctx,
		bson.M{"_id": id, "project_id": projectID}, bson.M{"$set": set})
	if err != nil {
		return classifyMongo(op, err)
	}
	if res.MatchedCount == 0 {
		return Errorf(op, CodeNotFound, "task %s not found", id)
	}
	return nil
}

// DeleteTask removes a task and its messages.
func (s *MongoStore) DeleteTask(ctx context.Context, projectID, id string) error {
	const op = "deleting task"
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": id, "project_id": projectID})
	if err != nil {
		return classifyMongo(op, err)
	}
	if res.DeletedCount == 0 {
		return Errorf(op, CodeNotFound, "task %s not found", id)
	}
	_, err = s.messages.DeleteMany(ctx, bson.M{"project_id": projectID, "task_id": id})
	return classifyMongo(op, err)
}

// ListTasks returns the tasks of a project ordered by sort order.
func (s *MongoStore) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	const op = "querying tasks"
	cursor, err := s.tasks.Find(ctx, bson.M{"project_id": projectID},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, classifyMongo(op, err)
	}
	var tasks []model.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, classifyMongo(op, err)
	}
	return tasks, nil
}

// WatchTasks runs ListTasks as a live query.
func (s *MongoStore) WatchTasks(
	projectID string,
	onChange func([]model.Task),
	onError func(error),
) Unsubscribe {
	return watchStream(s.tasks,
		func(ctx context.Context) ([]model.Task, error) {
			return s.ListTasks(ctx, projectID)
		},
		onChange, onError,
	)
}

// CreateMessage appends a chat message to a task.
func (s *MongoStore) CreateMessage(ctx context.Context, m model.Message) (model.Message, error) {
	const op = "creating message"
	if strings.TrimSpace(m.Text) == "" {
		return model.Message{}, Errorf(op, CodeInvalidArgument, "message text must not be empty")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = s.now().UTC()

	if _, err := s.messages.InsertOne(ctx, m); err != nil {
		return model.Message{}, classifyMongo(op, err)
	}
	return m, nil
}

// ListMessages returns the messages of a task, oldest first.
func (s *MongoStore) ListMessages(ctx context.Context, projectID, taskID string) ([]model.Message, error) {
	const op = "querying messages"
	cursor, err := s.messages.Find(ctx,
		bson.M{"project_id": projectID, "task_id": taskID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, classifyMongo(op, err)
	}
	var msgs []model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, classifyMongo(op, err)
	}
	return msgs, nil
}

// UpsertUser creates or replaces a user profile.
func (s *MongoStore) UpsertUser(ctx context.Context, u model.User) error {
	const op = "saving user"
	if u.ID == "" {
		return Errorf(op, CodeInvalidArgument, "user id is required")
	}
	doc := userDoc{User: u, EmailLower: strings.ToLower(strings.TrimSpace(u.Email))}
	_, err := s.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, doc, options.Replace().SetUpsert(true))
	return classifyMongo(op, err)
}

// GetUser retrieves a user by id.
func (s *MongoStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, classifyMongo("getting user "+id, err)
	}
	return &doc.User, nil
}

// GetUsers retrieves the users with the given ids. Unknown ids are skipped.
func (s *MongoStore) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	const op = "querying users"
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, classifyMongo(op, err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classifyMongo(op, err)
	}
	users := make([]model.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.User)
	}
	return users, nil
}

// UserByEmail looks a user up by email, ignoring case.
func (s *MongoStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"email_lower": strings.ToLower(strings.TrimSpace(email))}).Decode(&doc)
	if err != nil {
		return nil, classifyMongo("finding user by email", err)
	}
	return &doc.User, nil
}
