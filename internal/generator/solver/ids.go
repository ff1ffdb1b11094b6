package solver

import (
	"github.com/google/uuid"

	"github.com/schedcu/residency-engine/internal/entity"
)

func newID() entity.AssignmentID { return uuid.New() }
