package utils

import (
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/inboxd/pkg/entities"
)

// RegisterValidations hooks the custom binding rules into gin's validator
// engine. Call once before the router starts serving.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("isemail", isValidEmail)
		v.RegisterValidation("channeltype", isChannelType)
	}
}

func isValidEmail(fl validator.FieldLevel) bool {
	email := strings.TrimSpace(fl.Field().String())
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isChannelType(fl validator.FieldLevel) bool {
	switch entities.ChannelType(fl.Field().String()) {
	case entities.ChannelWhatsAppEvolution,
		entities.ChannelFacebookPage,
		entities.ChannelInstagramBusiness:
		return true
	}
	return false
}
