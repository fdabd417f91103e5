// Package dpop builds DPoP proofs (RFC 9449) signed with the device key.
//
// A proof binds one HTTP request to the device keypair: header
// {typ: "dpop+jwt", alg: "ES256", jwk: <device public key>} and payload
// {htu, htm, iat, jti, nonce?}. Header and payload JSON use lexicographic
// key ordering, and the signature is raw r‖s ECDSA-P256/SHA-256 — both are
// wire contract, recomputed by the gateway.
package dpop
