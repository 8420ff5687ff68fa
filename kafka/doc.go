// Package kafka provides the daemon's Kafka client layer on top of
// segmentio/kafka-go: connection configuration (TLS, SASL), the domain
// Message and Event types, the lifecycle component that runs consume loops
// and reports broker health, and the consumer and producer subpackages used
// by readers and pipelines.
package kafka
