package cli

import (
	"context"
	"log"
	"os"

	"github.com/linguaai/linguaclient/internal/client/services"
	"github.com/linguaai/linguaclient/internal/common"
)

// Signup registers a new account interactively. While offline the request
// is queued and replayed automatically once the backend is reachable.
func (a *App) Signup(ctx context.Context) {

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	name, err := GetSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	languages, err := GetLanguages(a.reader, "Learning languages (comma-separated codes, e.g. ar,es)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	native, err := GetSimpleText(a.reader, "Native language code (e.g. en)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(password)

	data := services.SignupData{
		Email:             email,
		Password:          string(password),
		Name:              name,
		LearningLanguages: languages,
		NativeLanguage:    native,
	}

	err = a.store.SignUp(ctx, data)
	if err == nil {
		log.Printf("Signup successful")
		return
	}
	if common.IsUnreachable(err) {
		log.Printf("Server unreachable, signup queued for replay when back online")
		return
	}
	log.Printf("Signup unsuccessful: %s", err.Error())
}
