package salesforce

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// UpdateAccount updates an Account record with the given fields.
func UpdateAccount(ctx context.Context, c Client, accountID string, fields map[string]any) error {
	if accountID == "" {
		return eris.New("sf: account id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, "Account", accountID, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update account %s", accountID))
	}
	return nil
}

// Task is a review task attached to a record via WhatId.
type Task struct {
	WhatID      string
	OwnerID     string
	Subject     string
	Description string
}

// CreateTask creates a not-started Task and returns the new Salesforce ID.
func CreateTask(ctx context.Context, c Client, task Task) (string, error) {
	if task.WhatID == "" {
		return "", eris.New("sf: task WhatId is required")
	}
	if task.Subject == "" {
		return "", eris.New("sf: task Subject is required")
	}

	fields := map[string]any{
		"WhatId":      task.WhatID,
		"Subject":     task.Subject,
		"Description": task.Description,
		"Status":      "Not Started",
		"Priority":    "Normal",
	}
	if task.OwnerID != "" {
		fields["OwnerId"] = task.OwnerID
	}

	id, err := c.InsertOne(ctx, "Task", fields)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: create task for %s", task.WhatID))
	}
	return id, nil
}
