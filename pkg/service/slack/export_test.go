package slack

var BuildCalloutBlocks = buildCalloutBlocks
