package main

import (
	"context"

	"github.com/dejobratic/orderflow/internal/orders/adapters/memory"
	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// seedMemory loads a handful of users and orders so the in-memory API can be exercised by hand.
func seedMemory(ctx context.Context, repo *memory.Repository) error {
	users := []domain.User{
		{ID: "user_1", Email: "ann.lee@example.com", FirstName: "Ann", LastName: "Lee"},
		{ID: "user_2", Email: "sam.ortiz@example.com", FirstName: "Sam", LastName: "Ortiz"},
		{ID: "user_3", FirstName: "Noor"},
	}
	for _, user := range users {
		if err := repo.CreateUser(ctx, user); err != nil {
			return err
		}
	}

	orders := []domain.Order{
		{ID: "ord_1", UserID: "user_1", Status: domain.StatusPending},
		{ID: "ord_2", UserID: "user_1", Status: domain.StatusProcessing},
		{ID: "ord_3", UserID: "user_2", Status: domain.StatusDispatched},
		{ID: "ord_4", UserID: "user_2", Status: domain.StatusTransit, IsPreOrder: true},
		{ID: "ord_5", UserID: "user_3", Status: domain.StatusProcessing},
	}
	for _, order := range orders {
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
	}

	return nil
}
