package mqttflow

// IncomingQos1Interceptor customizes the PUBACK sent in response to a
// received QoS 1 PUBLISH. The builder must not be retained beyond the call.
type IncomingQos1Interceptor interface {
	// OnPublish is called before the PUBACK for msg is built.
	OnPublish(cfg *ConnectionConfig, msg *Message, builder *PubackBuilder)
}

// IncomingQos2Interceptor customizes the PUBREC and PUBCOMP packets of the
// QoS 2 receive handshake. The builders must not be retained beyond the call.
type IncomingQos2Interceptor interface {
	// OnPublish is called before the PUBREC for msg is built.
	OnPublish(cfg *ConnectionConfig, msg *Message, builder *PubrecBuilder)

	// OnPubrel is called before the PUBCOMP answering pubrel is built.
	OnPubrel(cfg *ConnectionConfig, pubrel *PubrelPacket, builder *PubcompBuilder)
}

// AdvancedConfig holds the optional interceptors of an advanced client
// configuration. Either field may be nil.
type AdvancedConfig struct {
	Qos1 IncomingQos1Interceptor
	Qos2 IncomingQos2Interceptor
}

// invokeInterceptor runs fn and captures a panic instead of letting it
// unwind the event loop. The caller tears the connection down when the
// returned value is non-nil; an interceptor failure must not take the whole
// process with it.
func invokeInterceptor(logger Logger, name string, fn func()) (panicked any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("interceptor panic", LogFields{
				"interceptor": name,
				LogFieldError: r,
			})
			panicked = r
		}
	}()
	fn()
	return nil
}
