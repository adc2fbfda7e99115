// Package seed loads users and food items from a YAML file into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"canteen/logger"
	"canteen/models"
	"canteen/store"
)

type File struct {
	Users     []models.User     `yaml:"users"`
	FoodItems []models.FoodItem `yaml:"food_items"`
}

// Result counts what Apply did.
type Result struct {
	UsersAdded       int
	UsersSkipped     int
	FoodItemsAdded   int
	FoodItemsSkipped int
}

// sequenceSyncer is implemented by stores whose id sequences live outside
// the process and must be moved past explicitly seeded ids.
type sequenceSyncer interface {
	SyncSequences(ctx context.Context) error
}

func Parse(r io.Reader) (File, error) {
	var f File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	return f, nil
}

func LoadFile(path string) (File, error) {
	file, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer file.Close()
	return Parse(file)
}

// Apply adds every user and food item in f. Rows that already exist are
// skipped, so a seed can be applied on every start.
func Apply(ctx context.Context, s store.Store, f File, log *logger.Logger) (Result, error) {
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithComponent("seed")

	var res Result
	for _, user := range f.Users {
		if _, err := s.AddUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				log.Debug("User already present", "email", user.Email)
				res.UsersSkipped++
				continue
			}
			return res, fmt.Errorf("seed user %q: %w", user.Email, err)
		}
		res.UsersAdded++
	}
	for _, item := range f.FoodItems {
		if _, err := s.AddFoodItem(ctx, item); err != nil {
			if errors.Is(err, store.ErrConflict) {
				log.Debug("Food item already present", "name", item.Name)
				res.FoodItemsSkipped++
				continue
			}
			return res, fmt.Errorf("seed food item %q: %w", item.Name, err)
		}
		res.FoodItemsAdded++
	}

	if syncer, ok := s.(sequenceSyncer); ok {
		if err := syncer.SyncSequences(ctx); err != nil {
			return res, fmt.Errorf("sync sequences: %w", err)
		}
	}

	log.Info("Seed applied",
		"users_added", res.UsersAdded,
		"users_skipped", res.UsersSkipped,
		"food_items_added", res.FoodItemsAdded,
		"food_items_skipped", res.FoodItemsSkipped,
	)
	return res, nil
}
