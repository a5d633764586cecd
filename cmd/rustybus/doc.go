// Command rustybus sends, receives, or peeks at a single message on a
// remote queue.
//
//	echo '{"id": 1}' | rustybus send orders
//	rustybus receive orders
//	rustybus peek orders
//
// Piped stdin becomes the message body for send; newlines are removed. The
// backend (Azure Service Bus by default, or SQS, Redis, SQLite) is chosen by
// --backend, RUSTYBUS_BACKEND, or the backend key of the TOML config file.
// Service Bus credentials come from AZURE_SERVICE_BUS_NAMESPACE,
// AZURE_POLICY_NAME, and AZURE_POLICY_KEY, optionally loaded from a .env file.
package main
