// Package wire is the text protocol of the market engine. Every request and
// response is a single JSON document.
//
// Order request (buy and sell; the side comes from the operation):
//
//	{"item":"CORN","price":"12.5","quantity":32,"trader":"BOB"}
//
// price is a decimal string or a JSON number with at most four fractional
// digits. It is always encoded back as a string. Unknown fields, trailing
// data and wrongly typed values are serialization errors.
//
// Command envelope, for callers that send every operation down one channel:
//
//	{"op":"buy","order":{...}}
//	{"op":"sell","order":{...}}
//	{"op":"cancel_order","item":"CORN","order_id":"..."}
//	{"op":"order_status","item":"CORN","order_id":"..."}
//	{"op":"get_best_buying_price","item":"CORN"}
//	{"op":"get_best_selling_price","item":"CORN"}
//	{"op":"query_ledger","item":"CORN"}
//	{"op":"dump"}
//	{"op":"test_serialization","text":"{...order request...}"}
//
// Response envelope:
//
//	{"ok":true,"data":{...}}
//	{"ok":false,"error":{"code":"validation_error","message":"quantity: must be positive","field":"quantity"}}
//
// Error codes are validation_error, not_found, serialization_error and
// internal_error. Prices in responses are decimal strings; a missing best
// price is null.
package wire
