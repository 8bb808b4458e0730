package syncer

// StopFunction is appended to uploaded code so a script can end itself by
// calling stopCurrentScript().
const StopFunction = `

function stopCurrentScript() {
    let SCRIPT_ID = Shelly.getCurrentScriptId();
    let msg = "script " + SCRIPT_ID + " has been stopped";
    print(msg);
    Shelly.call(
        "Script.Stop",
        { "id" : SCRIPT_ID},
        function (result, error_code, error_message, usedata) {}
    );
};
`
