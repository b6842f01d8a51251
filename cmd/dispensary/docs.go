package main

// @title Dispensary Service API
// @version 1.0
// @description Clinic dispensary: lot capacity, FEFO checkout, quarantine and an append-only transaction ledger

// @contact.name API Support
// @contact.url http://github.com/tair/clinic-dispensary

// @license.name MIT

// @host localhost:8084
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Units
// @tag.description Check-in, lookup and administrative adjustment of units

// @tag.name Checkout
// @tag.description Specific, FEFO and quarantine checkouts

// @tag.name Lots
// @tag.description Lots, locations and capacity

// @tag.name Catalog
// @tag.description Drug registration

// @tag.name Health
// @tag.description Health check endpoints

// @tag.name Swagger
// @tag.description Swagger documentation endpoints
