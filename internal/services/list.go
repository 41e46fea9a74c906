package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dreamhome/planner/internal/mq"
	"github.com/dreamhome/planner/types"
)

const (
	defaultPriority      = types.PriorityHigh
	defaultEstimatedCost = 1000
)

// ItemFields carries the editable values of an item as submitted by a form.
// Nil numeric fields were not supplied; an empty Image keeps the current one.
type ItemFields struct {
	Name          string
	Description   string
	Comment       string
	Image         string
	Priority      *int
	EstimatedCost *int
}

// ListService manages the indoor and outdoor lists of a user. Every
// operation loads the record, mutates it and saves it back while holding a
// per-username lock, so concurrent requests for one user cannot overwrite
// each other's changes.
type ListService struct {
	users  UserRepository
	events EventPublisher
	logger *slog.Logger
	locks  *keyedMutex
}

func NewListService(users UserRepository, events EventPublisher, logger *slog.Logger) *ListService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListService{
		users:  users,
		events: events,
		logger: logger.With("component", "lists"),
		locks:  newKeyedMutex(),
	}
}

// AddItem appends a new item to the list and returns it with its id.
func (s *ListService) AddItem(ctx context.Context, username string, kind types.Kind, fields ItemFields) (types.Item, error) {
	item, err := itemFromFields(fields)
	if err != nil {
		return types.Item{}, err
	}
	if item.Image == "" {
		item.Image = types.PlaceholderImage
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	user, err := s.load(ctx, username)
	if err != nil {
		return types.Item{}, err
	}

	item.ID = user.NextID(kind)
	user.SetItems(kind, append(user.Items(kind), item))

	if _, err := s.users.Save(ctx, user); err != nil {
		return types.Item{}, storageError("save user", err)
	}

	s.logger.Debug("item added", "username", username, "kind", kind, "id", item.ID)
	publishEvent(ctx, s.events, s.logger, mq.Event{
		Type:     mq.EventItemAdded,
		Username: username,
		Kind:     string(kind),
		ItemID:   item.ID,
		ItemName: item.Name,
	})
	return item, nil
}

// EditItem overwrites the editable fields of the first item with id. A
// missing id is not an error: it returns false and leaves the list as is,
// whatever the fields hold. Fields are only validated for an existing item.
func (s *ListService) EditItem(ctx context.Context, username string, kind types.Kind, id int, fields ItemFields) (bool, error) {
	unlock := s.locks.Lock(username)
	defer unlock()

	user, err := s.load(ctx, username)
	if err != nil {
		return false, err
	}

	items := user.Items(kind)
	index := indexOf(items, id)
	if index < 0 {
		return false, nil
	}

	updated, err := itemFromFields(fields)
	if err != nil {
		return false, err
	}

	current := &items[index]
	current.Name = updated.Name
	current.Description = updated.Description
	current.Comment = updated.Comment
	current.Priority = updated.Priority
	current.EstimatedCost = updated.EstimatedCost
	if updated.Image != "" {
		current.Image = updated.Image
	}

	if _, err := s.users.Save(ctx, user); err != nil {
		return false, storageError("save user", err)
	}

	publishEvent(ctx, s.events, s.logger, mq.Event{
		Type:     mq.EventItemEdited,
		Username: username,
		Kind:     string(kind),
		ItemID:   id,
		ItemName: current.Name,
	})
	return true, nil
}

// DeleteItem removes the first item with id and reports whether one was
// removed. The record is saved either way.
func (s *ListService) DeleteItem(ctx context.Context, username string, kind types.Kind, id int) (bool, error) {
	unlock := s.locks.Lock(username)
	defer unlock()

	user, err := s.load(ctx, username)
	if err != nil {
		return false, err
	}

	items := user.Items(kind)
	index := indexOf(items, id)
	removed := index >= 0
	if removed {
		user.SetItems(kind, append(items[:index:index], items[index+1:]...))
	}

	if _, err := s.users.Save(ctx, user); err != nil {
		return false, storageError("save user", err)
	}

	if removed {
		publishEvent(ctx, s.events, s.logger, mq.Event{
			Type:     mq.EventItemDeleted,
			Username: username,
			Kind:     string(kind),
			ItemID:   id,
		})
	}
	return removed, nil
}

// ListItems returns the list in stored order.
func (s *ListService) ListItems(ctx context.Context, username string, kind types.Kind) ([]types.Item, error) {
	user, err := s.load(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.Items(kind), nil
}

// GetItem returns the first item with id, or ErrNotFound.
func (s *ListService) GetItem(ctx context.Context, username string, kind types.Kind, id int) (types.Item, error) {
	items, err := s.ListItems(ctx, username, kind)
	if err != nil {
		return types.Item{}, err
	}
	index := indexOf(items, id)
	if index < 0 {
		return types.Item{}, ErrNotFound
	}
	return items[index], nil
}

// FilterItems keeps the items whose name, description or comment contain
// query (case-insensitive) and, when priority is set, that have it.
func FilterItems(items []types.Item, query string, priority types.Priority) []types.Item {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]types.Item, 0, len(items))
	for _, item := range items {
		if priority.Valid() && item.Priority != priority {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Name), query) &&
			!strings.Contains(strings.ToLower(item.Description), query) &&
			!strings.Contains(strings.ToLower(item.Comment), query) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (s *ListService) load(ctx context.Context, username string) (types.User, error) {
	user, err := loadUser(ctx, s.users, username)
	if err != nil {
		return types.User{}, err
	}
	user.Normalize()
	return user, nil
}

func itemFromFields(fields ItemFields) (types.Item, error) {
	item := types.Item{
		Name:          strings.TrimSpace(fields.Name),
		Description:   strings.TrimSpace(fields.Description),
		Comment:       strings.TrimSpace(fields.Comment),
		Image:         fields.Image,
		Priority:      defaultPriority,
		EstimatedCost: defaultEstimatedCost,
	}
	if item.Name == "" {
		return types.Item{}, validationError("Item or facility name is required.")
	}
	if fields.Priority != nil {
		item.Priority = types.Priority(*fields.Priority)
		if !item.Priority.Valid() {
			return types.Item{}, validationError("Priority must be between %d and %d.", types.PriorityHigh, types.PriorityLow)
		}
	}
	if fields.EstimatedCost != nil {
		if *fields.EstimatedCost < 0 {
			return types.Item{}, validationError("Estimated cost cannot be negative.")
		}
		item.EstimatedCost = *fields.EstimatedCost
	}
	return item, nil
}

func indexOf(items []types.Item, id int) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
