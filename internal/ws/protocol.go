package ws

// WSPath is the endpoint the injected snippet dials.
const WSPath = "/live-server-ws"

// reloadMessage is the only frame the server sends: an empty text message
// telling the tab to reload.
var reloadMessage = []byte{}
