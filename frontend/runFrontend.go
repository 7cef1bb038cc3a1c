package frontend

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/savepoint/savepoint/frontend/client"
	"github.com/savepoint/savepoint/frontend/cmd"
	"github.com/zalando/go-keyring"
)

// RunFrontend starts the interactive shell. Tokens from a previous run are
// cleared so every session starts signed out.
func RunFrontend() {
	if err := godotenv.Load("frontend/.env"); err != nil {
		fmt.Println("Error loading frontend/.env file")
	}

	authToken := os.Getenv("AUTH_TOKEN")
	authTokenRefresh := os.Getenv("AUTH_TOKEN_REFRESH")
	serverURL := os.Getenv("SERVER_URL")

	keyring.Delete(client.KeyringService, authToken)
	keyring.Delete(client.KeyringService, authTokenRefresh)

	client.InitClient(serverURL, authToken, authTokenRefresh)
	cmd.InitCommands()
	cmd.Execute()
}
