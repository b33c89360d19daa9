// Package config provides process configuration for the Ludo engine.
//
// The config package handles:
//   - Loading an optional .env file
//   - Parsing settings from environment variables
//   - Validating settings and deriving the board rules
//   - Opening the configured persistence backend
//
// Environment:
//
//	LUDO_HOST              listen host (localhost)
//	LUDO_PORT              listen port (8080)
//	LUDO_DEBUG             development logging
//	LUDO_BOARD_SIZE        home square (30)
//	LUDO_STORE             file or sqlite (file)
//	LUDO_DATA_FILE         JSON snapshot path (ludo_games.json)
//	LUDO_SQLITE_PATH       SQLite database path (ludo.db)
//	LUDO_SESSION_TTL       idle sessions older than this are removed (24h)
//	LUDO_CLEANUP_INTERVAL  how often idle sessions are swept (1h)
//	NGROK_ENABLED          expose the server through an ngrok tunnel
//	NGROK_AUTHTOKEN        ngrok auth token
//	NGROK_DOMAIN           custom ngrok domain
//
// Command line flags override these values.
package config
