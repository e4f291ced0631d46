package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Realtime
	FieldConnectionID = "connection_id"
	FieldChannel      = "channel"
	FieldRoomID       = "room_id"
	FieldPeerID       = "peer_id"
	FieldMessageID    = "message_id"
	FieldOp           = "op"

	// Service
	FieldService  = "service"
	FieldInstance = "instance_id"

	// gRPC
	FieldGRPCMethod = "grpc_method"
	FieldGRPCCode   = "grpc_code"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
