// Package service provides the command layer of the Ludo engine.
//
// The service package implements:
//   - The seven game commands (create, join, leave, begin, roll, board, end)
//   - Dice rolling for rolls that arrive without a value
//   - Human-readable replies for every command
//   - Stable error codes for transports
//   - Panic recovery at the command boundary
//
// Core Interfaces:
//
// GameService is the main service interface used by the REST and MCP
// transports. SessionManager is the registry it drives; *session.Manager
// satisfies it. DiceRoller supplies dice values.
//
// Errors:
//
// Every error returned by GameService can be classified with CodeOf. Domain
// rejections keep their sentinel from the session package so errors.Is
// still works. Unexpected failures, including recovered panics, are
// reported as ErrInternal and logged with their cause.
//
// Usage:
//
//	manager := session.NewManager(engine.DefaultRules(), logger)
//	gameService := service.NewGameService(manager, logger)
//
//	info, err := gameService.CreateSession(ctx, "table-1")
//	if err != nil {
//		log.Fatal(err)
//	}
//	gameService.Join(ctx, info.ID, 1, "Alice")
//	gameService.Join(ctx, info.ID, 2, "Bob")
//	gameService.Begin(ctx, info.ID)
//
//	// A zero dice value rolls the die
//	result, err := gameService.Roll(ctx, info.ID, 1, 0)
//	fmt.Println(result.Summary)
package service
