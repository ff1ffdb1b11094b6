package generator

import (
	"github.com/google/uuid"

	"github.com/schedcu/residency-engine/internal/entity"
)

func newID() entity.ScheduleRunID { return uuid.New() }
