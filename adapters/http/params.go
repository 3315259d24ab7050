package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/detasker/pkg/address"
	"github.com/khoahotran/detasker/pkg/apperror"
)

func parseIDParam(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, apperror.NewInvalidInput("invalid "+name, err)
	}
	return id, nil
}

func parseAddressParam(c *gin.Context, name string) (address.Address, error) {
	addr, err := address.Parse(c.Param(name))
	if err != nil {
		return "", apperror.NewInvalidInput("invalid "+name+" address", err)
	}
	return addr, nil
}

func callerOrError(c *gin.Context) (address.Address, bool) {
	caller, ok := GetCallerFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("caller not found in context"))
	}
	return caller, ok
}
