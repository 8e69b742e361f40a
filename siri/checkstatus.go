package siri

import "time"

// EncodeCheckStatus builds the BODS CheckStatus document. The responder
// answering at all is the liveness signal, so Status and DataReady are
// always true.
func EncodeCheckStatus(serviceStartedAt time.Time) []byte {
	w := newXMLWriter()
	w.openAttrs("Siri",
		attr{"version", siriVersion},
		attr{"xmlns", siriNamespace},
		attr{"xmlns:xsi", xsiNamespace},
	)
	w.open("CheckStatusResponse")
	w.elem("Status", "true")
	w.elem("ServiceStartedTime", FormatTime(serviceStartedAt))
	w.elem("DataReady", "true")
	w.close("CheckStatusResponse")
	w.close("Siri")
	return w.bytes()
}
