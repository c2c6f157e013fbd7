// Package upload publishes videos to YouTube.
//
// Upload runs the resumable protocol directly: one POST opens a session, then
// fixed-size PUT chunks advance it until the server returns the video
// resource. Each 308 acknowledgement is reported as Progress. Transport
// failures abort the upload without retry. After a successful transfer the
// thumbnail is attached through the youtube/v3 client; a failure there is
// recorded on Result.ThumbnailErr rather than failing the upload.
//
// Credentials come from the OAuth client secrets and a previously authorized
// token file. Refreshed access tokens are written back to the token file.
package upload
