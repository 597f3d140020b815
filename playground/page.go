package playground

var htmlPage = `<html>
<head>
	<title>bass playground</title>
</head>
<body style="background-color: #1E1E1E; color: white; font-family: sans-serif;">
	<h1 style="display: inline-block;">bass playground</h1>
	<button id="assembleButton" style="margin-left: 50px; height: 40px; width: 100px;">ASSEMBLE</button>
	<label style="margin-left: 20px;"><input type="checkbox" id="strict"/> strict</label>
	<br/>
	<div style="display: flex; gap: 20px;">
		<div>
			<h2>Source</h2>
			<textarea id="source" spellcheck="false" style="width: 600px; height: 400px; font-family: monospace; background-color: black; color: white;">db "hello", 0</textarea>
		</div>
		<div>
			<h2>Architecture <input id="architecture" value="playground" style="width: 140px;"/></h2>
			<textarea id="table" spellcheck="false" style="width: 400px; height: 400px; font-family: monospace; background-color: black; color: white;"></textarea>
		</div>
	</div>
	<h2>Image</h2>
	<pre id="image" style="width: 980px; padding: 10px; background-color: black; min-height: 100px; border: 2px solid white;"></pre>
	<h2>Diagnostics</h2>
	<pre id="diagnostics" style="width: 980px; padding: 10px; background-color: black; min-height: 100px; border: 2px solid white;"></pre>

	<script>
		var socket = new WebSocket("ws://" + window.location.host + "/ws");

		function hexDump(raw) {
			var lines = [];
			for (var offset = 0; offset < raw.length; offset += 16) {
				var bytes = [];
				for (var i = offset; i < Math.min(offset + 16, raw.length); i++) {
					bytes.push(("0" + raw.charCodeAt(i).toString(16)).slice(-2));
				}
				lines.push(("0000000" + offset.toString(16)).slice(-8) + "  " + bytes.join(" "));
			}
			return lines.join("\n");
		}

		function onMessage(event) {
			var data = JSON.parse(event.data);
			if (data.type != "result") {
				return;
			}
			document.getElementById("image").textContent = hexDump(window.atob(data.image));
			var text = data.success ? "assembled\n" : "assembly failed\n";
			for (var d of data.diagnostics) {
				text += (d.range.start.line + 1) + ":" + (d.range.start.character + 1) + ": " + d.message + "\n";
			}
			document.getElementById("diagnostics").textContent = text + data.log;
		}
		socket.onmessage = onMessage;

		// reconnect every 3 seconds after the socket closes
		socket.onclose = function reconnect() {
			setTimeout(function() {
				socket = new WebSocket("ws://" + window.location.host + "/ws");
				socket.onmessage = onMessage;
				socket.onclose = reconnect;
			}, 3000);
		};

		document.getElementById("assembleButton").onclick = function() {
			socket.send(JSON.stringify({
				type: "assemble",
				source: document.getElementById("source").value,
				table: document.getElementById("table").value,
				architecture: document.getElementById("architecture").value,
				strict: document.getElementById("strict").checked
			}));
		};
	</script>
</body>
</html>`
