// Package main provides the deck authorization tool. Each playback deck
// needs its own Spotify refresh token; run this once per deck with that
// deck's application credentials.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

var (
	app          = kingpin.New("breathflow-auth", "Spotify deck authorization tool")
	clientID     = app.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	deckName     = app.Flag("deck", "Deck name used in the config snippet").Default("deck-a").String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()

	auth  *spotifyauth.Authenticator
	ch    = make(chan *oauth2.Token)
	state = "breathflow-auth-state"
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", *port)

	auth = spotifyauth.New(
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithClientID(*clientID),
		spotifyauth.WithClientSecret(*clientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		),
	)

	http.HandleFunc("/callback", completeAuth)

	server := &http.Server{Addr: fmt.Sprintf(":%d", *port)}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start callback server: %v", err)
		}
	}()

	url := auth.AuthURL(state)
	fmt.Println("Please visit the following URL to authorize this deck:")
	fmt.Println("")
	fmt.Println(url)
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	token := <-ch

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown callback server: %v", err)
	}

	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")

	deviceID := pickDevice(token)

	fmt.Println("")
	fmt.Println("Add this deck to your player.yaml:")
	fmt.Println("")
	fmt.Println("provider:")
	fmt.Println("  type: spotify")
	fmt.Println("  settings:")
	fmt.Println("    decks:")
	fmt.Printf("      - name: %s\n", *deckName)
	fmt.Printf("        client_id: %q\n", *clientID)
	fmt.Println("        client_secret: \"...\"")
	fmt.Printf("        refresh_token: %q\n", token.RefreshToken)
	fmt.Printf("        device_id: %q\n", deviceID)
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=%q\n", token.RefreshToken)
}

// pickDevice lists the Connect devices visible to the authorized account so
// the user can copy the right device id into the deck config.
func pickDevice(token *oauth2.Token) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := spotify.New(auth.Client(ctx, token))
	devices, err := client.PlayerDevices(ctx)
	if err != nil {
		log.Printf("Failed to list devices: %v", err)
		return "<device id>"
	}
	if len(devices) == 0 {
		fmt.Println("")
		fmt.Println("No Connect devices visible. Open Spotify on the target device and re-run.")
		return "<device id>"
	}

	fmt.Println("")
	fmt.Println("Visible Connect devices:")
	for _, d := range devices {
		fmt.Printf("  %s  %s (%s)\n", d.ID, d.Name, d.Type)
	}
	return string(devices[0].ID)
}

func completeAuth(w http.ResponseWriter, r *http.Request) {
	token, err := auth.Token(r.Context(), state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusForbidden)
		log.Printf("Failed to get token: %v", err)
		return
	}

	if st := r.FormValue("state"); st != state {
		http.Error(w, "State mismatch", http.StatusForbidden)
		log.Printf("State mismatch: %s != %s", st, state)
		return
	}

	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Deck Authorization Complete</title></head>
<body>
    <h1>Authorization Complete</h1>
    <p>You can close this window and return to the terminal.</p>
</body>
</html>
`)

	ch <- token
}
