// Package servicebus talks to Azure Service Bus queues through the azservicebus
// SDK.
//
// The client authenticates with a connection string built from the namespace
// policy name and key. Peek-lock keeps the received message so it can be
// abandoned (unlocked) after it has been shown.
package servicebus
