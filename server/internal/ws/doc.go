// Package ws streams market snapshots to browser clients over WebSocket
// (gorilla/websocket).
//
// Every message is {"event": ..., "data": ...}. A client receives a
// "snapshot" event right after connecting and again every broadcast
// interval; "alert" events carry rule and price alert notifications as
// they fire. Clients that fall behind are disconnected.
package ws
