// Package gcontacts provides a client for the Google Contacts feed API:
// https://developers.google.com/google-apps/contacts/v3/reference#ContactsFeed
//
// Features:
// - Bearer-token authenticated feed requests with status and payload error classification.
// - Continuation-link pagination, exposed as an iterator and as a collected slice.
// - OAuth2 refresh-token exchange for new access tokens.
//
// The API caps the number of entries per response even when more are
// requested. Truncated feeds carry a "next" link which [Client.ContactsIter]
// and [Client.Contacts] follow until the directory is exhausted.
package gcontacts
