package db

import (
	"context"

	"gator/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var userColumns = []string{"users.id", "users.name", "users.created_at", "users.updated_at"}

func (db *DB) CreateUser(ctx context.Context, name string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := db.now()
	user := models.User{Id: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}

	ib := db.flavor.NewInsertBuilder()
	ib.InsertInto("users").
		Cols("id", "name", "created_at", "updated_at").
		Values(user.Id, user.Name, user.CreatedAt, user.UpdatedAt)

	q, args := ib.Build()
	if _, err := db.db.ExecContext(ctx, q, args...); err != nil {
		return models.User{}, mapError("create user", err)
	}

	log.WithFields(log.Fields{"user": name, "id": user.Id}).Info("Created user")
	return user, nil
}

func (db *DB) GetUserByName(ctx context.Context, name string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := db.flavor.NewSelectBuilder()
	sb.Select(userColumns...).From("users").Where(sb.Equal("users.name", name))

	q, args := sb.Build()
	var user models.User
	err := db.db.QueryRowContext(ctx, q, args...).Scan(&user.Id, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return models.User{}, mapError("get user "+name, err)
	}
	return user, nil
}

// GetUsers lists all users by name
func (db *DB) GetUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := db.flavor.NewSelectBuilder()
	sb.Select(userColumns...).From("users").OrderBy("users.name").Asc()

	q, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.Id, &user.Name, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, mapError("scan user", err)
		}
		users = append(users, user)
	}
	return users, mapError("list users", rows.Err())
}

// DeleteAllUsers wipes every user. Feeds, follows and posts go with them
// through ON DELETE CASCADE.
func (db *DB) DeleteAllUsers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	del := db.flavor.NewDeleteBuilder()
	del.DeleteFrom("users")

	q, args := del.Build()
	res, err := db.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, mapError("delete users", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("delete users", err)
	}
	log.WithFields(log.Fields{"count": count}).Warn("Deleted all users")
	return count, nil
}
