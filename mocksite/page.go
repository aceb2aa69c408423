package mocksite

import (
	"html/template"
	"strings"

	"github.com/sinhala-translit/translit-test-harness/servicedef"
)

type pageData struct {
	Title      string
	InputLabel string
	Classes    string
	StreamID   string
	DebounceMS int64
}

// The page has three elements with the output classes: the textarea, a contenteditable preview
// that echoes the input, and the real output div. Only the last one is output.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<main>
  <h1>{{.Title}}</h1>
  <textarea class="{{.Classes}}" aria-label="{{.InputLabel}}" placeholder="{{.InputLabel}}"></textarea>
  <div id="preview" class="{{.Classes}}" contenteditable="true" aria-hidden="true"></div>
  <div id="output" class="{{.Classes}}"></div>
</main>
<script>
(function () {
  const streamID = {{.StreamID}};
  const debounceMS = {{.DebounceMS}};
  const input = document.querySelector('textarea');
  const preview = document.getElementById('preview');
  const output = document.getElementById('output');
  let seq = 0;
  let timer = null;

  const events = new EventSource('/stream/' + encodeURIComponent(streamID));
  const show = (e) => {
    const data = JSON.parse(e.data);
    if (data.seq === seq) {
      output.textContent = data.text;
    }
  };
  events.addEventListener('partial', show);
  events.addEventListener('final', show);

  input.addEventListener('input', () => {
    clearTimeout(timer);
    const mySeq = ++seq;
    const text = input.value;
    preview.textContent = text;
    if (text.trim() === '') {
      output.textContent = '';
      return;
    }
    timer = setTimeout(() => {
      fetch('/translate', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify({stream: streamID, seq: mySeq, text: text})
      });
    }, debounceMS);
  });
})();
</script>
</body>
</html>
`))

func outputClasses() string {
	return strings.Join(servicedef.OutputClassSignature(servicedef.DefaultOutputSelector), " ")
}
