package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
	"chama-ledger.backend/internal/interfaces/http/middleware"
	"chama-ledger.backend/internal/interfaces/http/response"
	"chama-ledger.backend/internal/usecases"
	"chama-ledger.backend/pkg/utils"
)

func respondError(c *gin.Context, err error) {
	response.Error(c, usecases.ToAppError(err))
}

func requireActor(c *gin.Context) (entities.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
	}
	return actor, ok
}

func parseIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid "+label+" ID"))
		return uuid.Nil, false
	}
	return id, true
}

func paginationFromQuery(c *gin.Context) utils.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return utils.GetPaginationParams(page, limit)
}
