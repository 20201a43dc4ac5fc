package main

//go:generate swag init -g cmd/syncd/main.go -o docs

// @title           Shopify Sync API
// @version         0.1.0
// @description     Incremental Shopify extraction into Postgres plus GDPR redact webhooks.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
