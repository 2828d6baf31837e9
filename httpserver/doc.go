/*
Package httpserver serves the namespace registry over HTTP.

# Reads

	GET /api/v1/nodes/{node}          registry record of a node hash
	GET /api/v1/names/{name}?text=k   record, resolver data and texts of a dotted name
	GET /api/v1/registrar/{label}     registration state of label under the base name
	GET /api/v1/reverse/{address}     reverse name of a principal
	GET /api/v1/balances/{address}    native token balance
	GET /api/v1/contracts             contract address book and controller generation

# Writes

Every write is a POST with a JSON body signed by the caller. The signature is
carried in X-Flashbots-Signature and verified with go-utils/signature; the
recovered address is the caller the registry authorizes.

	POST /api/v1/registry/{owner,subnode,record,resolver,ttl}
	POST /api/v1/controller/{register,renew}
	POST /api/v1/registrar/{reclaim,transfer}
	POST /api/v1/resolver/{records,clear}
	POST /api/v1/reverse/name
	POST /api/v1/ledger/transfer
	POST /api/v1/admin/{upgrade,transfer-ownership,initialize-v2,withdraw,recover-funds,mint,snapshot}

Registry errors map to status codes: unauthorized 403, already initialized or
registered 409, not found 404, invalid input 422, unsupported operation 501.

# Operations

	GET /livez, /readyz, /drain, /undrain
	/debug/pprof (with EnablePprof)
*/
package httpserver
